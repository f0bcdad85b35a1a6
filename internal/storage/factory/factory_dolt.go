package factory

import (
	"context"

	"github.com/yidong72/chisel/internal/storage"
	"github.com/yidong72/chisel/internal/storage/dolt"
)

func init() {
	RegisterBackend(BackendDolt, func(ctx context.Context, opts Options) (storage.Storage, error) {
		return dolt.New(ctx, &dolt.Config{
			Path:           opts.Path,
			Database:       opts.Database,
			ServerMode:     opts.ServerMode,
			ServerHost:     opts.ServerHost,
			ServerPort:     opts.ServerPort,
			ServerUser:     opts.ServerUser,
			ServerPassword: opts.ServerPassword,
		})
	})
}
