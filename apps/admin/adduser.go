package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/trezcool/educonnect/core/permission"
	"github.com/trezcool/educonnect/core/profile"
	"github.com/trezcool/educonnect/core/user"
)

type addUserOptions struct {
	email, name, role, profileID string
	superuser                    bool
	pwd                          string
}

// addUser updates or creates an active user.User.
func (cli *commandLine) addUser(ctx context.Context, opts addUserOptions) error {
	if opts.superuser {
		p, err := cli.profiles.Ensure(ctx, superuserProfile())
		if err != nil {
			return err
		}
		opts.role = user.RoleAdmin
		opts.profileID = p.ID
	}

	usr, err := cli.users.GetByEmail(ctx, opts.email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			return err
		}
		usr, err = cli.users.Create(ctx, user.NewUser{
			Name:            opts.name,
			Email:           opts.email,
			Role:            opts.role,
			ProfileID:       opts.profileID,
			Password:        opts.pwd,
			PasswordConfirm: opts.pwd,
		})
		if err != nil {
			return err
		}
		fmt.Printf("user %s created\n", usr.Email)
		return nil
	}

	active := true
	uu := user.UpdateUser{
		Name:            opts.name,
		Role:            opts.role,
		IsActive:        &active,
		Password:        opts.pwd,
		PasswordConfirm: opts.pwd,
	}
	if opts.profileID != "" { // keep the current binding otherwise
		uu.ProfileID = &opts.profileID
	}
	if usr, err = cli.users.Update(ctx, usr.ID, uu); err != nil {
		return err
	}
	fmt.Printf("user %s updated\n", usr.Email)
	return nil
}

func superuserProfile() profile.NewProfile {
	return profile.NewProfile{
		Name:        "Superuser",
		Sector:      "Administration",
		Permissions: permission.All(),
	}
}
