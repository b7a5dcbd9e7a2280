//go:build !linux

package cronsvc

import "context"

func Status(ctx context.Context, units []string) ([]UnitStatus, error) {
	_ = ctx
	_ = units
	return nil, ErrUnsupported
}
