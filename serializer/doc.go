// Package serializer provides the value conversion strategy used by adapters.
//
// A Serializer runs twice in the pipeline: Serialize on request data before
// the content codec encodes it, and Deserialize when a caller asks for a
// native view of a response value through Adapter.NativeAccessor.
//
//	s := serializer.NewSimple()
//	v, err := s.Deserialize(serializer.ToDecimal, "12.50", nil)
package serializer
