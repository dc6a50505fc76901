package main

import (
	"fmt"

	"github.com/fystack/stacks-connector/pkg/common/config"
	"github.com/fystack/stacks-connector/pkg/kvstore"
	"github.com/fystack/stacks-connector/pkg/store/triggerstore"
)

// StateCmd inspects trigger state kept in the configured kvstore.
type StateCmd struct {
	List  StateListCmd  `cmd:"" help:"List trigger ids with saved state."`
	Show  StateShowCmd  `cmd:"" help:"Print the saved state of a trigger."`
	Reset StateResetCmd `cmd:"" help:"Delete the saved state of a trigger."`
}

type StateListCmd struct{}

type StateShowCmd struct {
	ID string `arg:"" help:"Trigger id."`
}

type StateResetCmd struct {
	ID string `arg:"" help:"Trigger id."`
}

func openStates(g *Globals) (triggerstore.Store, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	return openTriggerStore(cfg)
}

func openTriggerStore(cfg *config.Config) (triggerstore.Store, error) {
	kv, err := kvstore.NewFromConfig(cfg.KVStore)
	if err != nil {
		return nil, fmt.Errorf("open kvstore: %w", err)
	}
	return triggerstore.NewTriggerStore(kv), nil
}

func (c *StateListCmd) Run(g *Globals, out *output) error {
	store, err := openStates(g)
	if err != nil {
		return err
	}
	defer store.Close()

	ids, err := store.IDs()
	if err != nil {
		return err
	}
	return out.JSON(ids)
}

func (c *StateShowCmd) Run(g *Globals, out *output) error {
	store, err := openStates(g)
	if err != nil {
		return err
	}
	defer store.Close()

	s, err := store.Load(c.ID)
	if err != nil {
		return err
	}
	return out.JSON(s)
}

func (c *StateResetCmd) Run(g *Globals, out *output) error {
	store, err := openStates(g)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(c.ID); err != nil {
		return err
	}
	return out.JSON(map[string]any{"id": c.ID, "reset": true})
}
