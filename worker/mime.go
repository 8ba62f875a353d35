package worker

import "github.com/itsneelabh/evalsession/ipc"

// MimeSource lets a value supply its own starting MIME bundle, the Go
// analogue of a user object exposing `_toMime()`.
type MimeSource interface {
	ToMime() (ipc.MimeBundle, error)
}

// HTMLSource, SVGSource, PNGSource, and JPEGSource let a value supply a
// single representation that the default encoder fills in only when
// the corresponding content type is still absent from the bundle.
type HTMLSource interface{ ToHTML() (string, error) }
type SVGSource interface{ ToSVG() (string, error) }
type PNGSource interface{ ToPNG() (string, error) }
type JPEGSource interface{ ToJPEG() (string, error) }

// Mimer is a user-installed encoder that replaces the default rules
// entirely when non-nil.
type Mimer func(v interface{}) (ipc.MimeBundle, error)

// EncodeMime applies the default MIME encoding rules to v, or defers
// entirely to mimer when one is installed.
func EncodeMime(v interface{}, mimer Mimer) (ipc.MimeBundle, error) {
	if mimer != nil {
		return mimer(v)
	}

	bundle := ipc.MimeBundle{}

	if v == nil {
		bundle["text/plain"] = "null"
		return bundle, nil
	}
	if isUndefined(v) {
		bundle["text/plain"] = "undefined"
		return bundle, nil
	}

	if src, ok := v.(MimeSource); ok {
		b, err := src.ToMime()
		if err != nil {
			return nil, err
		}
		for k, val := range b {
			bundle[k] = val
		}
	}

	if _, ok := bundle["text/plain"]; !ok {
		bundle["text/plain"] = CanonicalInspect(v)
	}
	if _, ok := bundle["text/html"]; !ok {
		if src, ok := v.(HTMLSource); ok {
			s, err := src.ToHTML()
			if err != nil {
				return nil, err
			}
			bundle["text/html"] = s
		}
	}
	if _, ok := bundle["image/svg+xml"]; !ok {
		if src, ok := v.(SVGSource); ok {
			s, err := src.ToSVG()
			if err != nil {
				return nil, err
			}
			bundle["image/svg+xml"] = s
		}
	}
	if _, ok := bundle["image/png"]; !ok {
		if src, ok := v.(PNGSource); ok {
			s, err := src.ToPNG()
			if err != nil {
				return nil, err
			}
			bundle["image/png"] = s
		}
	}
	if _, ok := bundle["image/jpeg"]; !ok {
		if src, ok := v.(JPEGSource); ok {
			s, err := src.ToJPEG()
			if err != nil {
				return nil, err
			}
			bundle["image/jpeg"] = s
		}
	}

	return bundle, nil
}
