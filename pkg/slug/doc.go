// Package slug turns arbitrary strings into file-name-safe slugs.
//
// It is used to derive preview file names from record values, so a record with
// name "Zoë O'Brien" becomes "zoe-o-brien". Latin diacritics are folded to ASCII
// via Unicode decomposition; anything that is not an ASCII letter or digit is
// collapsed into a single separator.
//
//	slug.Make("Café & Restaurant")                  // "cafe-restaurant"
//	slug.Make("Fish & Chips", slug.CustomReplace(map[string]string{"&": "and"}))
//	                                                 // "fish-and-chips"
//	slug.Make("Quarterly Report 2024", slug.Separator("_"), slug.MaxLength(16))
//	                                                 // "quarterly_report"
package slug
