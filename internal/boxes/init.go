package boxes

// Init registers every box grammar. Call once before dissecting.
// Registration is split into one function per concern (containers, movie
// headers, sample tables, fragment boxes, DRM, sample entries, meta boxes,
// ...) rather than one giant init(), even though everything ends up in
// the same map.
func Init() {
	registerContainers()
	registerMovieHeaders()
	registerSampleTableBoxes()
	registerFragmentBoxes()
	registerDRMBoxes()
	registerSampleEntries()
	registerMetaBoxes()
	registerQuickTimeMetadata()
}
