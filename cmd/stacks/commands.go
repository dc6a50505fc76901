package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/fystack/stacks-connector/internal/action"
	"github.com/fystack/stacks-connector/internal/trigger"
	"github.com/fystack/stacks-connector/pkg/common/logger"
	"github.com/fystack/stacks-connector/pkg/events"
	"github.com/fystack/stacks-connector/pkg/infra"
)

// output writes command results as indented JSON.
type output struct {
	w io.Writer
}

func (o *output) JSON(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

type ExecCmd struct {
	Resource       string   `help:"Resource name." required:"" short:"r"`
	Operation      string   `help:"Operation name." required:"" short:"o"`
	Params         []string `help:"Parameter as key=value. Repeatable." name:"param" short:"p"`
	Input          string   `help:"JSON file holding an array of parameter objects, one per item." type:"existingfile"`
	ContinueOnFail bool     `help:"Report per-item errors as output instead of failing." name:"continue-on-fail"`
}

func (c *ExecCmd) inputs() ([]action.Params, error) {
	base, err := action.ParseParams(c.Params)
	if err != nil {
		return nil, err
	}
	if c.Input == "" {
		return []action.Params{base}, nil
	}

	data, err := os.ReadFile(c.Input)
	if err != nil {
		return nil, err
	}
	return parseInputs(data, base)
}

// parseInputs decodes an array of objects, or a single object. Flag
// params fill keys the file leaves unset.
func parseInputs(data []byte, base action.Params) ([]action.Params, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}

	var objs []any
	switch v := raw.(type) {
	case []any:
		objs = v
	case map[string]any:
		objs = []any{v}
	default:
		return nil, errors.New("input must be a JSON object or an array of objects")
	}

	out := make([]action.Params, 0, len(objs))
	for i, o := range objs {
		m, ok := o.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("input item %d is not an object", i)
		}
		p := action.Params(m)
		for k, v := range base {
			if !p.Has(k) {
				p[k] = v
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *ExecCmd) Run(g *Globals, out *output) error {
	inputs, err := c.inputs()
	if err != nil {
		return err
	}
	a, err := newApp(g)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	items, err := a.executor(c.ContinueOnFail).ExecuteAll(ctx, c.Resource, c.Operation, inputs)
	if err != nil {
		return err
	}
	return out.JSON(items)
}

type EncodeCmd struct {
	Type  string `help:"Clarity type: int, uint, bool, buff, string-ascii, string-utf8, principal, none, some, list, tuple, ok, err, response." required:"" short:"t"`
	Value string `help:"Value to encode. Containers take JSON descriptors." short:"v"`
}

func (c *EncodeCmd) Run(out *output) error {
	return runOffline(out, "encode", action.Params{"clarityType": c.Type, "value": c.Value})
}

type DecodeCmd struct {
	Hex string `help:"Serialized value, 0x prefix optional." required:"" name:"hex"`
}

func (c *DecodeCmd) Run(out *output) error {
	return runOffline(out, "decode", action.Params{"hexValue": c.Hex})
}

// runOffline runs a clarity operation, which needs no network client.
func runOffline(out *output, operation string, p action.Params) error {
	items, err := action.NewExecutor(nil).Execute(context.Background(), "clarity", operation, p, 0)
	if err != nil {
		return err
	}
	return out.JSON(items[0].JSON)
}

type TriggerCmd struct {
	Event  string   `help:"Event to watch. Defaults to trigger.event from config." short:"e"`
	ID     string   `help:"Trigger id that keys saved state. Defaults to trigger.id from config." name:"id"`
	Params []string `help:"Event parameter as key=value (address, contractId)." name:"param" short:"p"`
	Once   bool     `help:"Poll once, print what fired and exit."`
	Reset  bool     `help:"Forget saved state for this trigger before polling."`
}

func (c *TriggerCmd) config(a *app) (trigger.Config, error) {
	tc := a.cfg.Trigger
	params := map[string]string{}
	for k, v := range tc.Params {
		params[k] = v
	}
	extra, err := action.ParseParams(c.Params)
	if err != nil {
		return trigger.Config{}, err
	}
	for k := range extra {
		params[k] = extra.String(k)
	}

	name := tc.Event
	if c.Event != "" {
		name = c.Event
	}
	event, err := trigger.ParseEvent(name)
	if err != nil {
		return trigger.Config{}, err
	}
	id := tc.ID
	if c.ID != "" {
		id = c.ID
	}
	return trigger.Config{
		ID:         id,
		Event:      event,
		Address:    params["address"],
		ContractID: params["contractId"],
	}, nil
}

func (c *TriggerCmd) Run(g *Globals, out *output) error {
	a, err := newApp(g)
	if err != nil {
		return err
	}
	defer a.Close()

	tcfg, err := c.config(a)
	if err != nil {
		return err
	}

	store, err := openTriggerStore(a.cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if c.Reset {
		if err := store.Delete(tcfg.ID); err != nil {
			return err
		}
	}

	poller, err := trigger.NewPoller(a.hiro, store, tcfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if c.Once {
		items, err := poller.Poll(ctx)
		if err != nil {
			return err
		}
		if items == nil {
			items = []action.Item{}
		}
		return out.JSON(items)
	}

	emitter, closeEmitter, err := a.emitter(ctx)
	if err != nil {
		return err
	}
	defer closeEmitter()

	runner := trigger.NewRunner(poller, emitter, a.cfg.Trigger.PollInterval, a.cfg.Network)
	runner.Start(ctx)
	logger.Info("Trigger is running... Press Ctrl+C to stop", "event", tcfg.Event, "id", tcfg.ID)
	<-ctx.Done()
	runner.Stop()
	logger.Info("Trigger stopped")
	return nil
}

type ListenCmd struct {
	Consumer string `help:"Durable consumer name." default:"stacks-listener"`
}

func (c *ListenCmd) Run(g *Globals, out *output) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	nc, err := infra.GetNATSConnection(cfg.Nats, cfg.IsProduction())
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer nc.Close()

	ctx, cancel := signalContext()
	defer cancel()

	queue, err := newQueue(ctx, cfg.Nats, nc, c.Consumer)
	if err != nil {
		return err
	}
	defer queue.Close()

	err = queue.Dequeue(events.SubjectWildcard(cfg.Nats.SubjectPrefix), func(msg []byte) error {
		var ev events.TriggerEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			return fmt.Errorf("%w: %w", infra.ErrPermament, err)
		}
		return out.JSON(ev)
	})
	if err != nil {
		return err
	}
	logger.Info("Listening for trigger events", "stream", cfg.Nats.Stream, "consumer", c.Consumer)
	<-ctx.Done()
	return nil
}

type ResourcesCmd struct {
	Resource string `arg:"" optional:"" help:"Only list this resource."`
}

func (c *ResourcesCmd) Run(out *output) error {
	reg := action.DefaultRegistry()
	resources := reg.Resources()
	if c.Resource != "" {
		if len(reg.Operations(c.Resource)) == 0 {
			return fmt.Errorf("%w: %s", action.ErrUnknownResource, c.Resource)
		}
		resources = []string{c.Resource}
	}

	tw := tabwriter.NewWriter(out.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RESOURCE\tOPERATION\tPARAMS\tDESCRIPTION")
	for _, res := range resources {
		for _, op := range reg.Operations(res) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", res, op.Name, strings.Join(op.RequiredParams(), ","), op.Description)
		}
	}
	for _, e := range trigger.Events() {
		fmt.Fprintf(tw, "trigger\t%s\t%s\t\n", e, strings.Join(e.RequiredParams(), ","))
	}
	return tw.Flush()
}
