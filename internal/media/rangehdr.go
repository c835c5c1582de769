package media

import (
	"errors"
	"strconv"
	"strings"
)

var errUnsatisfiable = errors.New("range not satisfiable")

// byteRange is an inclusive window [Start, End].
type byteRange struct {
	Start, End int64
}

func (b byteRange) Length() int64 { return b.End - b.Start + 1 }

// parseRange interprets a Range header against an object of the given size.
// ok is false when the whole object should be served: no header, an empty
// object, or a header we cannot parse (multiple ranges included).
// errUnsatisfiable is returned when the start lies beyond the object.
func parseRange(h string, size int64) (r byteRange, ok bool, err error) {
	h = strings.TrimSpace(h)
	if h == "" || size <= 0 {
		return byteRange{}, false, nil
	}
	const unit = "bytes="
	if len(h) < len(unit) || !strings.EqualFold(h[:len(unit)], unit) {
		return byteRange{}, false, nil
	}
	set := strings.TrimSpace(h[len(unit):])
	if strings.Contains(set, ",") {
		return byteRange{}, false, nil
	}
	first, last, found := strings.Cut(set, "-")
	if !found {
		return byteRange{}, false, nil
	}
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)

	if first == "" {
		// suffix form: last N bytes
		n, perr := strconv.ParseInt(last, 10, 64)
		if perr != nil || n <= 0 {
			return byteRange{}, false, nil
		}
		if n > size {
			n = size
		}
		return byteRange{Start: size - n, End: size - 1}, true, nil
	}

	start, perr := strconv.ParseInt(first, 10, 64)
	if perr != nil || start < 0 {
		return byteRange{}, false, nil
	}
	end := size - 1
	if last != "" {
		e, perr := strconv.ParseInt(last, 10, 64)
		if perr != nil || e < start {
			return byteRange{}, false, nil
		}
		end = e
	}
	if start >= size {
		return byteRange{}, false, errUnsatisfiable
	}
	if end > size-1 {
		end = size - 1
	}
	return byteRange{Start: start, End: end}, true, nil
}
