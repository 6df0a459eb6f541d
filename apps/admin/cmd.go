package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf    *core.Config
	db      *sql.DB
	usrRepo user.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  createdb                                 - create the database and app user if missing")
	fmt.Println("  migrate                                  - apply pending database migrations")
	fmt.Println("  adduser -username USERNAME -email EMAIL [-admin] - create or update a user; password prompted")
	fmt.Println("  resetpassword -username USERNAME|EMAIL   - reset user's password")
	fmt.Println("  upload -path FILE -title TITLE [-module ID|-cohort ID] [-position N] -url URL -token TOKEN - upload a resource")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant all roles to the user.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	uploadCmd := flag.NewFlagSet("upload", flag.ExitOnError)
	uploadPath := uploadCmd.String("path", "", "Path of the file to upload.")
	uploadTitle := uploadCmd.String("title", "", "Resource title; defaults to the file name.")
	uploadModule := uploadCmd.String("module", "", "Module ID the resource belongs to.")
	uploadCohort := uploadCmd.String("cohort", "", "Cohort ID the resource belongs to.")
	uploadPosition := uploadCmd.Int("position", 0, "Resource position within its scope.")
	uploadURL := uploadCmd.String("url", "http://localhost:8000", "API base URL.")
	uploadToken := uploadCmd.String("token", "", "API auth token.")

	switch args[1] {
	case "createdb":
		return cli.createDB()
	case "migrate":
		return cli.migrate()
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserUname, *addUserEmail, pwd, *addUserAdmin)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)
	case "upload":
		if err := uploadCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *uploadPath == "" {
			uploadCmd.Usage()
			return errHelp
		}
		return cli.upload(uploadOpts{
			path:     *uploadPath,
			title:    *uploadTitle,
			moduleID: *uploadModule,
			cohortID: *uploadCohort,
			position: *uploadPosition,
			baseURL:  *uploadURL,
			token:    *uploadToken,
		})
	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
