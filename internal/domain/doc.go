// Package domain defines the core entities of the content engine: learning
// items, their per-language translations, attempt results, and the category
// and situation pools they rotate through.
package domain
