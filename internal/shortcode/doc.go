// Package shortcode resolves the two template constructs operators can use in
// notification and document templates:
//
//	{{key}}                       replaced by a value from a flat string map
//	{{#IF_TAG}}...{{/IF_TAG}}     kept or removed based on a boolean context
//
// Conditionals are always resolved before tokens, so tokens may appear inside
// conditional bodies while substituted values can never introduce new
// conditional markers.
//
// Conditional blocks are flat. Two different tags may nest, but a block of a
// given tag must not contain another block of the same tag: the closing
// marker pairs with the first inner closing marker and the result is
// undefined. Nesting of same-name blocks is unsupported.
package shortcode
