package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/mutamba/coopvida/core"
	"github.com/mutamba/coopvida/core/billing"
	"github.com/mutamba/coopvida/core/cooperado"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sql.DB
	conf    *core.Config
	coopSvc *cooperado.Service
	billSvc *billing.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS]              - run a goose migration command (up, down, status, ...)")
	fmt.Println("  billingcycle                        - generate due mensalidades and flag overdue payments")
	fmt.Println("  suspend                             - suspend cooperados with long-overdue mensalidades")
	fmt.Println("  reactivate                          - reactivate suspended cooperados with recent payments")
	fmt.Println("  resetpassword -numero NUMERO        - reset a cooperado's portal password")
	fmt.Println("  admintoken -nome NOME -email EMAIL  - mint a back-office API token")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordNumero := resetPasswordCmd.String("numero", "", "The cooperado's membership number. The password will be prompted next.")

	adminTokenCmd := flag.NewFlagSet("admintoken", flag.ExitOnError)
	adminTokenNome := adminTokenCmd.String("nome", "", "The admin's display name.")
	adminTokenEmail := adminTokenCmd.String("email", "", "The admin's email.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "billingcycle":
		res, err := cli.billSvc.RunCycle(context.Background(), time.Now().UTC())
		if err != nil {
			return err
		}
		fmt.Printf("mensalidades criadas: %d, marcadas atrasadas: %d\n", res.MensalidadesCriadas, res.MarcadosAtrasados)
		return nil
	case "suspend":
		n, err := cli.billSvc.SuspendOverdue(context.Background(), time.Now().UTC())
		if err != nil {
			return err
		}
		fmt.Printf("cooperados suspensos: %d\n", n)
		return nil
	case "reactivate":
		n, err := cli.billSvc.ReactivatePaid(context.Background(), time.Now().UTC())
		if err != nil {
			return err
		}
		fmt.Printf("cooperados reativados: %d\n", n)
		return nil
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordNumero == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordNumero, string(pwd))
	case "admintoken":
		if err := adminTokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *adminTokenNome == "" || *adminTokenEmail == "" {
			adminTokenCmd.Usage()
			return errHelp
		}
		return cli.adminToken(*adminTokenNome, *adminTokenEmail)
	default:
		cli.printUsage()
		return errHelp
	}
}
