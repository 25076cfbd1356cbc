package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/tapioca/adapter"
	"github.com/kbukum/tapioca/client"
)

type callOptions struct {
	method   string
	path     []string
	query    []string
	headers  []string
	data     string
	pages    bool
	maxPages int
	maxItems int
}

func newCallCommand(global *globalOptions) *cobra.Command {
	opts := &callOptions{}
	cmd := &cobra.Command{
		Use:   "call RESOURCE",
		Short: "Call a configured resource",
		Long: `Call a resource defined in the config file and print the decoded result.

Placeholders in the resource template are filled with -p; --pages walks every
page of a paginated resource and prints the collected items.`,
		Example: `  tapioca call user -p id=42
  tapioca call users --pages --max-pages 3 -o table
  tapioca call users -X POST -d '{"name":"ada"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, global, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.method, "method", "X", "", "HTTP method (default GET, or POST with --data)")
	f.StringArrayVarP(&opts.path, "param", "p", nil, "template placeholder as key=value (repeatable)")
	f.StringArrayVarP(&opts.query, "query", "q", nil, "query parameter as key=value (repeatable)")
	f.StringArrayVarP(&opts.headers, "header", "H", nil, "request header as key=value (repeatable)")
	f.StringVarP(&opts.data, "data", "d", "", "request body as JSON")
	f.BoolVar(&opts.pages, "pages", false, "follow pagination and print every item")
	f.IntVar(&opts.maxPages, "max-pages", 0, "stop after this many pages (0 = no limit)")
	f.IntVar(&opts.maxItems, "max-items", 0, "stop after this many items (0 = no limit)")
	return cmd
}

func runCall(cmd *cobra.Command, global *globalOptions, opts *callOptions, resource string) error {
	out := cmd.OutOrStdout()
	format, err := resolveFormat(global.output, out)
	if err != nil {
		return err
	}

	kw, values, err := opts.requestInput()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	c, shutdown, err := global.newClient(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(ctx) }()

	target, err := c.Resource(resource, values)
	if err != nil {
		return err
	}
	kw.URL = target.URL

	var result any
	if opts.pages {
		items, err := c.Pages(kw, client.PageOptions{MaxPages: opts.maxPages, MaxItems: opts.maxItems}).All(ctx)
		if err != nil {
			return err
		}
		result = items
	} else {
		res, err := c.Call(ctx, kw)
		if err != nil {
			return err
		}
		result = res.First()
		if len(res.Data) > 1 {
			result = res.Data
		}
	}
	return render(out, format, result)
}

// requestInput turns the flags into call input and template values.
func (o *callOptions) requestInput() (adapter.RequestKwargs, map[string]any, error) {
	kw := adapter.RequestKwargs{Method: strings.ToUpper(o.method)}

	values, err := parsePairs("param", o.path)
	if err != nil {
		return kw, nil, err
	}
	template := make(map[string]any, len(values))
	for k, v := range values {
		template[k] = v
	}

	if kw.Params, err = parsePairs("query", o.query); err != nil {
		return kw, nil, err
	}
	if kw.Headers, err = parsePairs("header", o.headers); err != nil {
		return kw, nil, err
	}

	if o.data != "" {
		var body any
		if err := json.Unmarshal([]byte(o.data), &body); err != nil {
			return kw, nil, fmt.Errorf("--data is not valid JSON: %w", err)
		}
		kw.Data = body
		if kw.Method == "" {
			kw.Method = http.MethodPost
		}
	}
	return kw, template, nil
}

func parsePairs(flag string, pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("--%s %q: expected key=value", flag, p)
		}
		out[k] = v
	}
	return out, nil
}
