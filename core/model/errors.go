package model

import "errors"

// ErrConfig marks a fatal configuration error detected before a run starts:
// shape mismatches, missing fields, out-of-range efficiencies or inverted
// bounds. Callers test for it with errors.Is.
var ErrConfig = errors.New("invalid configuration")
