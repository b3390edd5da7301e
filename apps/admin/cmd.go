package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/ricardious/semestrix/core/program"
	"github.com/ricardious/semestrix/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sqlx.DB
	usrRepo  user.Repository
	progRepo program.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate up|down|status|version [ARGS...] - apply database migrations")
	fmt.Println("  adduser -username USERNAME -email EMAIL [-name NAME] [-admin] - update or create a user; the password is prompted")
	fmt.Println("  loadpensum -file FILE.xlsx -program CODE -name NAME -year YEAR - import a curriculum spreadsheet")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant all roles.")

	loadPensumCmd := flag.NewFlagSet("loadpensum", flag.ExitOnError)
	loadPensumFile := loadPensumCmd.String("file", "", "Path to the .xlsx curriculum file.")
	loadPensumProgram := loadPensumCmd.String("program", "", "Program code, e.g. sistemas.")
	loadPensumName := loadPensumCmd.String("name", "", "Program name; defaults to the code.")
	loadPensumYear := loadPensumCmd.Int("year", 0, "Curriculum version year.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserUname, *addUserEmail, *addUserName, string(pwd), *addUserAdmin)
	case "loadpensum":
		if err := loadPensumCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loadPensumFile == "" || *loadPensumProgram == "" || *loadPensumYear == 0 {
			loadPensumCmd.Usage()
			return errHelp
		}
		return cli.loadPensum(*loadPensumFile, *loadPensumProgram, *loadPensumName, *loadPensumYear)
	default:
		cli.printUsage()
		return errHelp
	}
}
