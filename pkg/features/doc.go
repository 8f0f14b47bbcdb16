// Package features defines the vocabulary of work item feature types.
//
// Feature types split into a fixed free set (PIA, CUSTOM) that every
// organization may use and a fixed premium set (DPIA, LIA, TIA, VENDOR)
// that requires an active license. VENDOR_CATALOG is a separate access flag
// for the vendor catalog and is licensed the same way as a premium type.
package features
