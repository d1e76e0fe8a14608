package workload

import (
	"strconv"

	aerrors "github.com/23skdu/tinyalloc/internal/errors"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// BuildArrow builds an int64 and a string array of n values with mem as the
// Arrow allocator, verifies every value and releases both arrays.
// Builders start with small buffers, so the first few resizes are pool-served.
func BuildArrow(mem memory.Allocator, n int) error {
	ints := array.NewInt64Builder(mem)
	defer ints.Release()
	strs := array.NewStringBuilder(mem)
	defer strs.Release()

	for i := 0; i < n; i++ {
		ints.Append(int64(i) * 3)
		if i%7 == 0 {
			strs.AppendNull()
		} else {
			strs.Append(strconv.Itoa(i))
		}
	}

	intArr := ints.NewInt64Array()
	defer intArr.Release()
	strArr := strs.NewStringArray()
	defer strArr.Release()

	if intArr.Len() != n || strArr.Len() != n {
		return aerrors.NewValidationError("build_arrow", "array length mismatch").
			WithContext("want", n).
			WithContext("ints", intArr.Len()).
			WithContext("strings", strArr.Len())
	}
	for i := 0; i < n; i++ {
		if got := intArr.Value(i); got != int64(i)*3 {
			return aerrors.NewValidationError("build_arrow", "int64 value mismatch").
				WithContext("index", i).
				WithContext("value", got)
		}
		if i%7 == 0 {
			if !strArr.IsNull(i) {
				return aerrors.NewValidationError("build_arrow", "expected null").WithContext("index", i)
			}
			continue
		}
		if got := strArr.Value(i); got != strconv.Itoa(i) {
			return aerrors.NewValidationError("build_arrow", "string value mismatch").
				WithContext("index", i).
				WithContext("value", got)
		}
	}
	return nil
}
