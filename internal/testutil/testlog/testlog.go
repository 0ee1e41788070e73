package testlog

import (
	"testing"

	"github.com/Lakr233/vphone-cli/internal/logging"
)

func Start(t *testing.T) {
	t.Helper()
	logger := logging.ConfigureTests("vphoned-test")
	logger.Info().Str("test", t.Name()).Msg("start")
}
