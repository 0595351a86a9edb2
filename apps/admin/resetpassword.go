package main

import (
	"context"
)

func (cli *commandLine) resetPassword(numero, pwd string) error {
	ctx := context.Background()
	coop, err := cli.coopSvc.GetByNumero(ctx, numero)
	if err != nil {
		return err
	}
	if _, err := cli.coopSvc.ResetPassword(ctx, coop.ID, pwd); err != nil {
		return err
	}
	return nil
}
