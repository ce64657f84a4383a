package config

// deepMerge returns a new map with override applied on top of base. Neither
// input is modified.
func deepMerge(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		if baseVal, exists := result[k]; exists {
			baseMap, baseIsMap := baseVal.(map[string]any)
			overMap, overIsMap := v.(map[string]any)
			if baseIsMap && overIsMap {
				result[k] = deepMerge(baseMap, overMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}
