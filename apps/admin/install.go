package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) install(ctx context.Context) error {
	if err := cli.setup.MarkInstalled(ctx); err != nil {
		return err
	}
	fmt.Println("installation completed")
	return nil
}
