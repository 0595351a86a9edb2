package main

import (
	"fmt"

	echoapi "github.com/mutamba/coopvida/apps/api/echo"
)

// adminToken mints a signed back-office token; hand it to the admin frontend
// or use it directly with curl.
func (cli *commandLine) adminToken(nome, email string) error {
	echoapi.InitAuth(cli.conf)
	token, err := echoapi.GenerateToken(echoapi.GetAdminClaims(nome, email))
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
