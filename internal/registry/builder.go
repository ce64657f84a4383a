package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/darkden-lab/portalhost/internal/i18n"
)

var (
	// ErrFrozen is returned by writes after Freeze.
	ErrFrozen = errors.New("registry is frozen")
	// ErrInvalidContribution is returned for contributions whose free-form
	// config cannot be serialized.
	ErrInvalidContribution = errors.New("invalid registry contribution")
)

// encodable rejects values Freeze could not snapshot, such as functions or
// channels nested in config maps.
func encodable(what string, v any) error {
	if _, err := json.Marshal(v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidContribution, what, err)
	}
	return nil
}

// Builder is the single-owner registry handed to plugin initializers. It is
// safe for concurrent use and rejects writes once frozen.
type Builder struct {
	mu     sync.Mutex
	cfg    DynamicRootConfig
	frozen bool
}

func NewBuilder() *Builder {
	return &Builder{cfg: NewDynamicRootConfig()}
}

func (b *Builder) write(fn func(cfg *DynamicRootConfig) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return ErrFrozen
	}
	return fn(&b.cfg)
}

func (b *Builder) AddDynamicRoute(r DynamicRoute) error {
	if r.Path == "" {
		return fmt.Errorf("dynamic route of %s has no path", r.Scope)
	}
	if err := encodable("dynamic route "+r.Path, r); err != nil {
		return err
	}
	return b.write(func(cfg *DynamicRootConfig) error {
		cfg.DynamicRoutes = append(cfg.DynamicRoutes, r)
		return nil
	})
}

// AddMenuItem adds or replaces the menu item with the same name.
func (b *Builder) AddMenuItem(item MenuItem) error {
	if item.Name == "" {
		return errors.New("menu item has no name")
	}
	return b.write(func(cfg *DynamicRootConfig) error {
		for i, existing := range cfg.MenuItems {
			if existing.Name == item.Name {
				cfg.MenuItems[i] = mergeMenuItem(existing, item)
				return nil
			}
		}
		cfg.MenuItems = append(cfg.MenuItems, item)
		return nil
	})
}

// mergeMenuItem lets a later contribution override the non-empty fields of an
// earlier one, so config can retitle or reorder built-in items.
func mergeMenuItem(base, over MenuItem) MenuItem {
	if over.Title != "" {
		base.Title = over.Title
	}
	if over.TitleKey != "" {
		base.TitleKey = over.TitleKey
	}
	if over.Icon != "" {
		base.Icon = over.Icon
	}
	if over.To != "" {
		base.To = over.To
	}
	if over.Priority != 0 {
		base.Priority = over.Priority
	}
	if over.Parent != "" {
		base.Parent = over.Parent
	}
	return base
}

func (b *Builder) SetEntityTab(tab EntityTab) error {
	if tab.Path == "" {
		return errors.New("entity tab has no path")
	}
	return b.write(func(cfg *DynamicRootConfig) error {
		cfg.EntityTabOverrides[tab.Path] = tab
		return nil
	})
}

func (b *Builder) AddMountPoint(name string, mp MountPoint) error {
	if name == "" {
		return fmt.Errorf("mount point of %s has no name", mp.Scope)
	}
	if err := encodable("mount point "+name, mp); err != nil {
		return err
	}
	return b.write(func(cfg *DynamicRootConfig) error {
		cfg.MountPoints[name] = append(cfg.MountPoints[name], mp)
		return nil
	})
}

func (b *Builder) AddScaffolderFieldExtension(ext ScaffolderFieldExtension) error {
	return b.write(func(cfg *DynamicRootConfig) error {
		cfg.ScaffolderFieldExtensions = append(cfg.ScaffolderFieldExtensions, ext)
		return nil
	})
}

func (b *Builder) AddTechdocsAddon(addon TechdocsAddon) error {
	if err := encodable("techdocs addon", addon); err != nil {
		return err
	}
	return b.write(func(cfg *DynamicRootConfig) error {
		cfg.TechdocsAddons = append(cfg.TechdocsAddons, addon)
		return nil
	})
}

func (b *Builder) AddProviderSetting(p ProviderSetting) error {
	return b.write(func(cfg *DynamicRootConfig) error {
		cfg.ProviderSettings = append(cfg.ProviderSettings, p)
		return nil
	})
}

// AddTranslationRef registers ref once.
func (b *Builder) AddTranslationRef(ref i18n.Ref) error {
	if ref.ID == "" {
		return i18n.ErrMissingRefID
	}
	return b.write(func(cfg *DynamicRootConfig) error {
		for _, existing := range cfg.TranslationRefs {
			if existing.ID == ref.ID {
				return nil
			}
		}
		cfg.TranslationRefs = append(cfg.TranslationRefs, ref)
		return nil
	})
}

// Frozen reports whether Freeze was called.
func (b *Builder) Frozen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frozen
}

// Freeze ends the init phase and returns a deep copy of the registry. Menu
// items are ordered by descending priority, then name.
func (b *Builder) Freeze() (*DynamicRootConfig, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frozen = true

	raw, err := json.Marshal(b.cfg)
	if err != nil {
		return nil, fmt.Errorf("snapshot registry: %w", err)
	}
	out := NewDynamicRootConfig()
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("snapshot registry: %w", err)
	}
	SortMenuItems(out.MenuItems)
	return &out, nil
}

// SortMenuItems orders items by descending priority, then name.
func SortMenuItems(items []MenuItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		return items[i].Name < items[j].Name
	})
}

// MenuTree nests items under their parent. Items whose parent is unknown stay
// at the top level, as do items that would otherwise only hang off a parent
// cycle. Every input item appears exactly once in the result.
func MenuTree(items []MenuItem) []MenuItem {
	byName := make(map[string]bool, len(items))
	for _, it := range items {
		byName[it.Name] = true
	}
	// Items caught in a parent cycle are moved to the top level one at a
	// time until every item is reachable from a root.
	promoted := map[string]bool{}
	for {
		children := map[string][]MenuItem{}
		var roots []MenuItem
		for _, it := range items {
			if !promoted[it.Name] && it.Parent != "" && it.Parent != it.Name && byName[it.Parent] {
				children[it.Parent] = append(children[it.Parent], it)
				continue
			}
			roots = append(roots, it)
		}

		reached := make(map[string]bool, len(items))
		var mark func(name string)
		mark = func(name string) {
			if reached[name] {
				return
			}
			reached[name] = true
			for _, kid := range children[name] {
				mark(kid.Name)
			}
		}
		for _, it := range roots {
			mark(it.Name)
		}

		orphan := ""
		for _, it := range items {
			if !reached[it.Name] {
				orphan = it.Name
				break
			}
		}
		if orphan == "" {
			return attachMenuChildren(roots, children, map[string]bool{})
		}
		log.Printf("WARNING: registry: menu item %q is part of a parent cycle, moved to top level", orphan)
		promoted[orphan] = true
	}
}

func attachMenuChildren(list []MenuItem, children map[string][]MenuItem, onPath map[string]bool) []MenuItem {
	out := make([]MenuItem, 0, len(list))
	for _, it := range list {
		if onPath[it.Name] {
			continue
		}
		it.Children = nil
		if kids := children[it.Name]; len(kids) > 0 {
			onPath[it.Name] = true
			it.Children = attachMenuChildren(kids, children, onPath)
			delete(onPath, it.Name)
		}
		out = append(out, it)
	}
	SortMenuItems(out)
	return out
}
