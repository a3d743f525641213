// Command issue_token prints a device token for an account so a client can
// reach the /api routes.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/xelth-com/pantrysync/internal/config"
	"github.com/xelth-com/pantrysync/internal/utils"
)

const usage = "usage: issue_token <uid> [device] [ttl-days]"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	token, err := issue(os.Args[1:], cfg.JWTSecret, cfg.DeviceID)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	fmt.Println(token)
}

// issue reads uid, optional device and optional ttl in days from args.
func issue(args []string, secret, defaultDevice string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return "", errors.New(usage)
	}
	uid, device, ttl := args[0], defaultDevice, utils.DefaultTokenTTL
	if len(args) > 1 && args[1] != "" {
		device = args[1]
	}
	if len(args) > 2 {
		days, err := cast.ToIntE(args[2])
		if err != nil || days <= 0 {
			return "", errors.Errorf("ttl-days must be a positive number, got %q", args[2])
		}
		ttl = time.Duration(days) * 24 * time.Hour
	}
	return utils.GenerateToken(uid, device, secret, ttl)
}
