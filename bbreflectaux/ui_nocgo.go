//go:build tinygo || !cgo

package bbreflectaux

import "errors"

func ui(s *Scene, cfg UIConfig) error {
	return errors.New("require cgo for UI rendering")
}
