// easydrm-inspect dumps connector and mode information for a DRM device
// node: every connector's connection state and advertised modes. It
// performs no rendering and no mode-setting; it exists for diagnosing a
// device's topology before running a real renderer against it.
//
// Usage: easydrm-inspect [--device /dev/dri/card0]
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/hyprside/easydrm/internal/card"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	devicePath := flag.String("device", envOrDefault("EASYDRM_DEVICE", "/dev/dri/card0"), "DRM device node to inspect")
	flag.Parse()

	c, err := card.Open(*devicePath)
	if err != nil {
		logger.Error("open DRM device", "device", *devicePath, "err", err)
		os.Exit(1)
	}
	defer c.Close()

	res, err := c.Resources()
	if err != nil {
		logger.Error("enumerate DRM resources", "err", err)
		os.Exit(1)
	}

	fmt.Printf("%s: %d connectors, %d CRTCs, %d encoders\n",
		*devicePath, len(res.ConnectorIDs), len(res.CrtcIDs), len(res.EncoderIDs))

	for _, connID := range res.ConnectorIDs {
		info, err := c.Connector(connID)
		if err != nil {
			logger.Warn("fetch connector", "connector_id", connID, "err", err)
			continue
		}

		status := "disconnected"
		if info.Connection == card.Connected {
			status = "connected"
		} else if info.Connection == card.UnknownState {
			status = "unknown"
		}

		fmt.Printf("connector %d: %s, %d modes\n", connID, status, len(info.Modes))
		for i, m := range info.Modes {
			w, h := m.Size()
			marker := ""
			if i == 0 {
				marker = " (preferred)"
			}
			fmt.Printf("  %dx%d @%dHz%s\n", w, h, m.VRefresh, marker)
		}
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
