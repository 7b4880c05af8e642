package node

import (
	"log/slog"
	"strconv"
	"strings"
)

// Config is the node's start-up configuration, populated from CLI flags.
type Config struct {
	NodeName string
	NodeID   int
	Port     int
	IP       string
	Peers    []string
}

// DefaultConfig mirrors the defaults the original entry point hard-coded
// before any flag overrides them.
func DefaultConfig() Config {
	return Config{NodeName: "default", NodeID: 1, Port: 8000, IP: "0.0.0.0"}
}

// ParseArgs applies key=value CLI arguments on top of DefaultConfig,
// recognizing node-name, node-id, port, peers and ip and logging (rather
// than failing on) anything else, the way the original entry point walked
// os.Args splitting each token on "=".
func ParseArgs(args []string, logger *slog.Logger) Config {
	cfg := DefaultConfig()
	for _, arg := range args {
		parts := strings.SplitN(arg, "=", 2)
		if len(parts) != 2 {
			if logger != nil {
				logger.Info("argument has no key=value split", "arg", arg)
			}
			continue
		}
		key, value := parts[0], parts[1]
		switch key {
		case "node-name":
			cfg.NodeName = value
		case "node-id":
			id, err := strconv.Atoi(value)
			if err != nil {
				if logger != nil {
					logger.Warn("bad node-id", "value", value, "error", err.Error())
				}
				continue
			}
			cfg.NodeID = id
		case "port":
			port, err := strconv.Atoi(value)
			if err != nil {
				if logger != nil {
					logger.Warn("bad port", "value", value, "error", err.Error())
				}
				continue
			}
			cfg.Port = port
		case "peers":
			cfg.Peers = splitNonEmpty(value, ",")
		case "ip":
			cfg.IP = value
		default:
			if logger != nil {
				logger.Info("ignoring unknown flag", "key", key)
			}
		}
	}
	return cfg
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Address is this node's own dial-in network address.
func (c Config) Address() string {
	return c.IP + ":" + strconv.Itoa(c.Port)
}
