package main

import (
	"context"
)

// resetPassword sets the user's password, bypassing the password policy.
func (cli *commandLine) resetPassword(ctx context.Context, email, pwd string) error {
	usr, err := cli.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	_, err = cli.users.SetPassword(ctx, usr, pwd)
	return err
}
