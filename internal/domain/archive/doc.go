// Package archive packs a workspace's buffers into a downloadable project
// and reads such projects back.
//
// A project is three files: index.html, style.css and script.js. Export
// writes them in that order as zip (the default), tar.gz or tar.zst.
// Import sniffs the container, picks the three files out by base name and
// normalizes their text to UTF-8.
package archive
