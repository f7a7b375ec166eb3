package mcpserver

// PostFormatURI is the resource URI of PostFormat.
const PostFormatURI = "quill://post-format"

// PostFormat describes the Markdown post file format that LLM consumers
// should follow when drafting posts.
const PostFormat = `# Quill Post Format

Posts are stored as ` + "`" + `<slug>.md` + "`" + ` files. The slug is derived from the title
and is the file name; it is never read from the file.

## Structure

` + "```" + `markdown
---
title: Human-readable title
slug: human-readable-title
tags: [go, web]
imageUrl: /uploads/cover-1a2b3c4d.png
description: One sentence shown in listings and meta tags
keywords: go, http, blog
author: Jane Doe
createdAt: 2025-01-15T09:30:00.000Z
---

Body text in Markdown.
` + "```" + `

## Rules

1. The ` + "`" + `---` + "`" + ` fences must open the file and be alone on their lines.
2. One ` + "`" + `key: value` + "`" + ` per line, split on the first colon. Values are plain
   text taken as written (quotes are kept). A value cannot span lines.
3. ` + "`" + `tags` + "`" + ` is a bracketed, comma-separated list. Other keys are strings.
4. ` + "`" + `createdAt` + "`" + ` is an ISO-8601 timestamp. Posts are listed newest first.
5. The body is Markdown: headings (` + "`" + `#` + "`" + ` to ` + "`" + `###` + "`" + `), bold, italic, links, images,
   inline and fenced code, block quotes and one bullet list. Raw HTML is passed
   through unchanged.
6. Upload images with the ` + "`" + `upload_image` + "`" + ` tool and reference them by the
   returned ` + "`" + `/uploads/...` + "`" + ` URL.

## Tools

- ` + "`" + `create_post` + "`" + ` writes the file for you from a title, body and optional
  metadata. Publishing a title that already exists overwrites that post.
- ` + "`" + `render_markdown` + "`" + ` previews a body exactly as the site will show it.
`
