package main

import (
	"context"
	"fmt"

	"github.com/darasahq/darasa/uploader"
)

type uploadOpts struct {
	path     string
	title    string
	moduleID string
	cohortID string
	position int
	baseURL  string
	token    string
}

// upload pushes one file through the resource upload protocol, printing
// state transitions and transfer progress as it goes.
func (cli *commandLine) upload(opts uploadOpts) error {
	spec, closeFn, err := uploader.FromFile(opts.path)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	spec.Title = opts.title
	if spec.Title == "" {
		spec.Title = spec.Name
	}
	spec.ModuleID = opts.moduleID
	spec.CohortID = opts.cohortID
	spec.Position = opts.position

	client := uploader.NewClient(opts.baseURL, opts.token)
	res, err := client.Upload(context.Background(), spec,
		uploader.OnState(func(s uploader.State) {
			fmt.Printf("state: %s\n", s)
		}),
		uploader.OnProgress(func(sent, total int64) {
			fmt.Printf("\rprogress: %3d%%", uploader.Percent(sent, total))
			if sent == total {
				fmt.Println()
			}
		}),
	)
	if err != nil {
		return err
	}

	fmt.Printf("uploaded %q as resource %s (%d bytes at %s)\n", spec.Name, res.ID, res.FileSize, res.FilePath)
	return nil
}
