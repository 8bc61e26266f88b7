package extract

import "errors"

// ErrUnsupportedFormat indicates a file extension no extractor handles.
var ErrUnsupportedFormat = errors.New("unsupported document format")
