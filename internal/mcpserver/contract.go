package mcpserver

// DocumentFormat describes the persisted dashboard document and how tool
// indices address tiles.
const DocumentFormat = `# Tablero Document Format

The dashboard is a forest of tiles persisted as one JSON object
(` + "`" + `tablero-data.json` + "`" + ` on disk, indented with two spaces).

## Tiles

Every tile has a ` + "`" + `type` + "`" + ` and a ` + "`" + `name` + "`" + `.

| type   | fields                                   | notes |
|--------|------------------------------------------|-------|
| link   | url, favorite, customIcon (data URL)     | url must be absolute; http/https/ftp need a host |
| folder | children (array of tiles)                | never empty-named |
| note   | content (sanitized HTML, max 10000 chars)| only live in the root list |

A tile without a ` + "`" + `type` + "`" + ` or with an unknown one is read as a link.
Names are stored as escaped plain text; HTML in names is stripped.

## Document keys

- ` + "`" + `tiles` + "`" + `: the root list.
- ` + "`" + `trash` + "`" + `: deleted tiles, most recent first, each with ` + "`" + `deletedAt` + "`" + `.
- ` + "`" + `engine` + "`" + `, ` + "`" + `userName` + "`" + `, ` + "`" + `weatherCity` + "`" + `, ` + "`" + `autoSync` + "`" + `.
- Any other key is a cosmetic setting carried untouched.

## Addressing

Tools take a container ` + "`" + `index` + "`" + ` into the folder being viewed (see
` + "`" + `get_view` + "`" + `). Pass ` + "`" + `scope: "root"` + "`" + ` to address the root list instead,
which is how notes are reached.

- ` + "`" + `add_link` + "`" + ` inserts at the head of the current view.
- ` + "`" + `add_folder` + "`" + ` appends to the current view.
- ` + "`" + `add_note` + "`" + ` inserts at the head of the root list.
- ` + "`" + `delete_tile` + "`" + ` moves a tile to the trash; ` + "`" + `restore_tile` + "`" + ` puts it
  back at the head of the root list, not its old folder.
- ` + "`" + `move_tile` + "`" + ` reorders within one list, or with ` + "`" + `into: true` + "`" + ` moves a
  link or note into the folder at ` + "`" + `to` + "`" + `. Folders never nest by moving.

## Example

` + "```" + `json
{
  "tiles": [
    {"type": "link", "name": "Google", "url": "https://www.google.com/", "favorite": true},
    {"type": "folder", "name": "Work", "children": [
      {"type": "link", "name": "YouTube", "url": "https://www.youtube.com/"}
    ]},
    {"type": "note", "name": "Ideas", "content": "<p>ship it</p>"}
  ],
  "trash": [],
  "engine": "google",
  "autoSync": true,
  "theme": "dark"
}
` + "```" + `
`
