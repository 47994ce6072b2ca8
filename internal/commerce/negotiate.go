package commerce

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

// Backends expose one of two admin shapes for writing variant stock. The
// dedicated inventory route is preferred; older deployments only accept a
// variant update carrying inventory_quantity. The shape is probed once per
// process and remembered.
type inventoryShape struct {
	name string
	path func(variantID string) string
	body func(qty int64) any
}

var dedicatedShape = inventoryShape{
	name: "dedicated",
	path: func(variantID string) string {
		return fmt.Sprintf("/admin/variants/%s/inventory", variantID)
	},
	body: func(qty int64) any {
		return map[string]any{"quantity": qty}
	},
}

var legacyShape = inventoryShape{
	name: "legacy",
	path: func(variantID string) string {
		return fmt.Sprintf("/admin/products/variants/%s", variantID)
	},
	body: func(qty int64) any {
		return map[string]any{"inventory_quantity": qty}
	},
}

type inventoryCapability struct {
	mu     sync.Mutex
	chosen *inventoryShape
}

func newInventoryCapability() *inventoryCapability {
	return &inventoryCapability{}
}

// resolve probes the dedicated route with an OPTIONS request. A 404 means the
// route does not exist and the legacy shape is used; any other answer means
// the route is present. Transport failures leave the capability undecided so
// the next write probes again.
func (n *inventoryCapability) resolve(ctx context.Context, c *Client, variantID string) (*inventoryShape, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.chosen != nil {
		return n.chosen, nil
	}

	err := c.do(ctx, http.MethodOptions, dedicatedShape.path(variantID), true, nil, nil, "probe inventory endpoint")
	switch {
	case err == nil:
		n.chosen = &dedicatedShape
	default:
		status, rejected := IsRejection(err)
		if !rejected {
			return nil, err
		}
		if status == http.StatusNotFound {
			n.chosen = &legacyShape
		} else {
			n.chosen = &dedicatedShape
		}
	}

	c.logger.InfoContext(ctx, "negotiated inventory endpoint shape", "shape", n.chosen.name)
	return n.chosen, nil
}
