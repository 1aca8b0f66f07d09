package version

// Current returns this build's own runtime version, the value checked
// against a bundle manifest's min_runtime_version.
func Current() Version {
	return Version{
		Major: 1,
		Minor: 0,
		Patch: 0,
	}
}
