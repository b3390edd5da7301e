package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ricardious/semestrix/core"
	"github.com/ricardious/semestrix/core/user"
)

// addUser creates a user.User, or reactivates and updates an existing one
// matched by username or email. Admins get all roles; everyone else is a student.
func (cli *commandLine) addUser(uname, email, name, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}})
	switch errors.Cause(err) {
	case nil:
	case user.ErrNotFound:
		usr = user.User{Username: uname, Email: email}
	default:
		return err
	}

	if name != "" {
		usr.Name = core.CleanString(name)
	}
	if isAdmin {
		usr.Roles = user.AllRoles
	} else if len(usr.Roles) == 0 {
		usr.Roles = []string{user.RoleStudent}
	}
	usr.SetActive(true)
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr)
	return err
}
