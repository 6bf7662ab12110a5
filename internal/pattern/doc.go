// Package pattern implements the recursive type-coercion engine used to turn
// raw strings and decoded JSON/YAML values into the typed parameter values a
// stage works with.
//
// A Pattern describes the target shape of a value. Leaf patterns coerce a
// single value (Int, Float, String, Bool, Literal or a custom Func), while
// container patterns (List, Tuple, Dict) recurse into their elements:
//
//	List{Int}                  every element coerced to int
//	Tuple{String, Float}       exactly two elements, index-wise coercion
//	Dict{{Key: String, Value: List{Float}}}
//	                           every key and every value coerced
//
// Lists and dicts are homogeneous: they carry zero or one sub-pattern. An
// empty List, Tuple or Dict copies the input without coercing its elements.
//
// Coerced values use a small value model: int, float64, string, bool, []any
// for both lists and tuples, and map[any]any for mappings produced by Dict.
package pattern
