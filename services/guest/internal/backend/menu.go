package backend

import (
	"context"
	"fmt"
	"strconv"
)

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	data, err := c.get(ctx, "/categories", TagCategory)
	if err != nil {
		return nil, err
	}

	var categories []Category
	if err := decodeCollection(data, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) ListMenuItems(ctx context.Context) ([]MenuItem, error) {
	data, err := c.get(ctx, "/menu-items", TagMenuItem)
	if err != nil {
		return nil, err
	}

	var items []MenuItem
	if err := decodeCollection(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) ListMenuItemsByCategory(ctx context.Context, categoryID int64) ([]MenuItem, error) {
	path := fmt.Sprintf("/menu-items/category/%d", categoryID)
	data, err := c.get(ctx, path, TagMenuItem, idTag(TagCategory, strconv.FormatInt(categoryID, 10)))
	if err != nil {
		return nil, err
	}

	var items []MenuItem
	if err := decodeCollection(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) GetMenuItem(ctx context.Context, id int64) (*MenuItem, error) {
	path := fmt.Sprintf("/menu-items/%d", id)
	data, err := c.get(ctx, path, TagMenuItem, idTag(TagMenuItem, strconv.FormatInt(id, 10)))
	if err != nil {
		return nil, err
	}

	var item MenuItem
	if err := decodeObject(data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}
