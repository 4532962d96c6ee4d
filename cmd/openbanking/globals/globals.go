package globals

import (
	"context"
	"openbankingbr/cmd/openbanking/config"
	"openbankingbr/internal/components/chrono"
	"openbankingbr/internal/components/telemetry"
)

type keyType int

const key keyType = 0

type Value struct {
	Config config.Config
	Clock  chrono.API
	Tel    telemetry.API
	// DumpDir receives every http exchange when set.
	DumpDir string
}

func Set(ctx context.Context, value *Value) context.Context {
	return context.WithValue(ctx, key, value)
}

func Get(ctx context.Context) *Value {
	return ctx.Value(key).(*Value)
}
