//go:build !darwin

package clipboard

import "log/slog"

func readFileList(logger *slog.Logger) []string {
	return nil
}
