package authority

// cacheKey places the company generation after the path so DeletePrefix on
// scope and path prefix still matches every generation.
func cacheKey(scope, path, generation string) string {
	return scope + " " + path + "#" + generation
}

func generationKey(company string) string {
	return "generation " + company
}
