package main

import (
	"fmt"
	"time"

	"github.com/Billy-Davies-2/futdraw/internal/auth"
)

type cmdToken struct {
	Secret string        `long:"secret" env:"FUTDRAW_TOKEN_SECRET" required:"true" description:"HS256 signing secret shared with the server"`
	Owner  string        `long:"owner" required:"true" description:"Owner id the token signs in as"`
	Name   string        `long:"name" description:"Display name"`
	TTL    time.Duration `long:"ttl" default:"24h" description:"Token lifetime"`
}

func (cmd *cmdToken) Execute([]string) error {
	token, err := auth.IssueToken(cmd.Secret, cmd.Owner, cmd.Name, cmd.TTL)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}
