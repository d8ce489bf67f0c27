package sanitizer

// NormalizeID cleans customer, host, listing and intent identifiers before
// validation. Identifiers keep their case; only surrounding whitespace and
// control characters are removed.
func NormalizeID(id string) string {
	return idPipeline.Apply(id)
}

// NormalizeFreeText cleans customer-supplied prose such as cancellation
// reasons: control characters stripped, runs of whitespace collapsed, and
// the result capped before storage.
func NormalizeFreeText(s string) string {
	return freeTextPipeline.Apply(s)
}
