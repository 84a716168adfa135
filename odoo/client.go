package odoo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"github.com/kolo/xmlrpc"
)

var (
	ErrAuthFailed = errors.New("odoo: authentication failed")
	ErrNotFound   = errors.New("odoo: record not found")
)

// Client wraps the two XML-RPC endpoints of an Odoo instance.
// It logs in lazily and reuses the uid for every call.
type Client struct {
	cfg    config.OdooConfig
	common *xmlrpc.Client
	object *xmlrpc.Client

	mu  sync.Mutex
	uid int64
}

func NewClient(cfg config.OdooConfig) (*Client, error) {
	base := strings.TrimRight(cfg.URL, "/")
	if base == "" {
		return nil, errors.New("odoo url is empty")
	}
	common, err := xmlrpc.NewClient(base+"/xmlrpc/2/common", nil)
	if err != nil {
		return nil, fmt.Errorf("odoo common endpoint: %w", err)
	}
	object, err := xmlrpc.NewClient(base+"/xmlrpc/2/object", nil)
	if err != nil {
		return nil, fmt.Errorf("odoo object endpoint: %w", err)
	}
	return &Client{cfg: cfg, common: common, object: object}, nil
}

func (c *Client) Close() {
	c.common.Close()
	c.object.Close()
}

func (c *Client) login(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uid != 0 {
		return c.uid, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var reply interface{}
	args := []interface{}{c.cfg.Database, c.cfg.Username, c.cfg.Password, map[string]interface{}{}}
	if err := c.common.Call("authenticate", args, &reply); err != nil {
		return 0, fmt.Errorf("odoo authenticate: %w", err)
	}
	uid, ok := reply.(int64)
	if !ok || uid == 0 {
		return 0, ErrAuthFailed
	}
	c.uid = uid
	return uid, nil
}

// execute runs execute_kw on the object endpoint.
func (c *Client) execute(ctx context.Context, model, method string, args []interface{}, kwargs map[string]interface{}, reply interface{}) error {
	uid, err := c.login(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	params := []interface{}{c.cfg.Database, uid, c.cfg.Password, model, method, args}
	if kwargs != nil {
		params = append(params, kwargs)
	}
	if err := c.object.Call("execute_kw", params, reply); err != nil {
		return fmt.Errorf("odoo %s.%s: %w", model, method, err)
	}
	return nil
}

func (c *Client) create(ctx context.Context, model string, fields map[string]interface{}) (int64, error) {
	var id int64
	if err := c.execute(ctx, model, "create", []interface{}{fields}, nil, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// Update writes fields on one record of model.
func (c *Client) Update(ctx context.Context, model string, id int64, fields map[string]interface{}) error {
	var ok bool
	return c.execute(ctx, model, "write", []interface{}{[]interface{}{id}, fields}, nil, &ok)
}

func (c *Client) readOne(ctx context.Context, model string, id int64, fields []string) (map[string]interface{}, error) {
	domain := []interface{}{[]interface{}{"id", "=", id}}
	kwargs := map[string]interface{}{"fields": toInterfaces(fields)}
	var rows []map[string]interface{}
	if err := c.execute(ctx, model, "search_read", []interface{}{domain}, kwargs, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s %d: %w", model, id, ErrNotFound)
	}
	return rows[0], nil
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
