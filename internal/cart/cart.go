package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrInvalidQuantity = errors.New("quantité invalide")
	ErrNotFound        = errors.New("article absent du panier")
	ErrShapeMismatch   = errors.New("article déjà présent avec une autre forme (taille / sans taille)")
	ErrMalformed       = errors.New("panier sérialisé invalide")
)

type entryKind uint8

const (
	kindFlat entryKind = iota + 1
	kindSized
)

// Entry est soit une quantité simple, soit une quantité par taille.
// La forme ne change jamais tant que l'article reste dans le panier.
type Entry struct {
	kind  entryKind
	qty   int
	sizes map[string]int
}

func Flat(qty int) Entry {
	return Entry{kind: kindFlat, qty: qty}
}

func BySize(sizes map[string]int) Entry {
	cp := make(map[string]int, len(sizes))
	for s, q := range sizes {
		cp[s] = q
	}
	return Entry{kind: kindSized, sizes: cp}
}

func (e Entry) IsSized() bool { return e.kind == kindSized }

// Quantity retourne la quantité d'un article sans taille
func (e Entry) Quantity() int { return e.qty }

// Sizes retourne une copie des quantités par taille
func (e Entry) Sizes() map[string]int {
	cp := make(map[string]int, len(e.sizes))
	for s, q := range e.sizes {
		cp[s] = q
	}
	return cp
}

// Total additionne toutes les quantités de l'article
func (e Entry) Total() int {
	if !e.IsSized() {
		return e.qty
	}
	total := 0
	for _, q := range e.sizes {
		total += q
	}
	return total
}

// Line est une ligne à plat du panier (une par taille)
type Line struct {
	ProductID string
	Size      string
	Quantity  int
}

// Cart est le panier mutable d'une session
type Cart struct {
	entries map[string]Entry
}

func New() *Cart {
	return &Cart{entries: map[string]Entry{}}
}

// Add incrémente la quantité (par taille si size != "")
func (c *Cart) Add(productID string, quantity int, size string) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	current, exists := c.entries[productID]
	if exists && current.IsSized() != (size != "") {
		return ErrShapeMismatch
	}

	if size == "" {
		c.entries[productID] = Flat(current.qty + quantity)
		return nil
	}

	if !exists {
		current = BySize(nil)
	}
	current.sizes[size] += quantity
	c.entries[productID] = current
	return nil
}

// Set fixe une quantité absolue ; 0 ou moins supprime l'article (ou la taille)
func (c *Cart) Set(productID string, quantity int, size string) error {
	if quantity <= 0 {
		return c.Remove(productID, size)
	}
	current, exists := c.entries[productID]
	if exists && current.IsSized() != (size != "") {
		return ErrShapeMismatch
	}

	if size == "" {
		c.entries[productID] = Flat(quantity)
		return nil
	}

	if !exists {
		current = BySize(nil)
	}
	current.sizes[size] = quantity
	c.entries[productID] = current
	return nil
}

// Remove retire l'article, ou seulement une taille ; une map de tailles vide disparaît
func (c *Cart) Remove(productID, size string) error {
	current, exists := c.entries[productID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, productID)
	}

	// sans taille : on retire l'article entier, toutes tailles comprises
	if size == "" {
		delete(c.entries, productID)
		return nil
	}
	if !current.IsSized() {
		return ErrShapeMismatch
	}

	if _, ok := current.sizes[size]; !ok {
		return fmt.Errorf("%w: %s (%s)", ErrNotFound, productID, size)
	}
	delete(current.sizes, size)
	if len(current.sizes) == 0 {
		delete(c.entries, productID)
	}
	return nil
}

func (c *Cart) IsEmpty() bool { return len(c.entries) == 0 }

// Snapshot fige le contenu pour le calcul des prix et la commande
func (c *Cart) Snapshot() Snapshot {
	cp := make(map[string]Entry, len(c.entries))
	for id, e := range c.entries {
		if e.IsSized() {
			cp[id] = BySize(e.sizes)
		} else {
			cp[id] = e
		}
	}
	return Snapshot{entries: cp}
}

func (c *Cart) MarshalJSON() ([]byte, error) {
	return c.Snapshot().MarshalJSON()
}

func (c *Cart) UnmarshalJSON(data []byte) error {
	snap, err := decode(data)
	if err != nil {
		return err
	}
	c.entries = snap.entries
	return nil
}

// Snapshot est une copie en lecture seule d'un panier
type Snapshot struct {
	entries map[string]Entry
}

// Cart reconstruit un panier mutable à partir de l'instantané
func (s Snapshot) Cart() *Cart {
	c := New()
	for id, e := range s.entries {
		if e.IsSized() {
			c.entries[id] = BySize(e.sizes)
		} else {
			c.entries[id] = e
		}
	}
	return c
}

func (s Snapshot) Len() int { return len(s.entries) }

func (s Snapshot) IsEmpty() bool { return len(s.entries) == 0 }

func (s Snapshot) Entry(productID string) (Entry, bool) {
	e, ok := s.entries[productID]
	if ok && e.IsSized() {
		e = BySize(e.sizes)
	}
	return e, ok
}

// ProductCount additionne toutes les quantités
func (s Snapshot) ProductCount() int {
	n := 0
	for _, e := range s.entries {
		n += e.Total()
	}
	return n
}

// Lines aplatit le panier, trié par produit puis par taille
func (s Snapshot) Lines() []Line {
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	lines := make([]Line, 0, len(ids))
	for _, id := range ids {
		e := s.entries[id]
		if !e.IsSized() {
			lines = append(lines, Line{ProductID: id, Quantity: e.qty})
			continue
		}
		sizes := make([]string, 0, len(e.sizes))
		for size := range e.sizes {
			sizes = append(sizes, size)
		}
		sort.Strings(sizes)
		for _, size := range sizes {
			lines = append(lines, Line{ProductID: id, Size: size, Quantity: e.sizes[size]})
		}
	}
	return lines
}

type sizedJSON struct {
	ItemsBySize map[string]int `json:"items_by_size"`
}

// MarshalJSON produit {"42": 3, "7": {"items_by_size": {"M": 2}}}, clés triées
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.entries))
	for id, e := range s.entries {
		if e.IsSized() {
			out[id] = sizedJSON{ItemsBySize: e.sizes}
		} else {
			out[id] = e.qty
		}
	}
	return json.Marshal(out)
}

// Serialize retourne la forme canonique stockée dans original_bag
func (s Snapshot) Serialize() string {
	data, err := s.MarshalJSON()
	if err != nil {
		// map[string]int / map[string]struct ne peut pas échouer
		panic(err)
	}
	return string(data)
}

// ParseSnapshot décode un panier sérialisé (métadonnées Stripe, original_bag)
func ParseSnapshot(raw string) (Snapshot, error) {
	return decode([]byte(raw))
}

func decode(data []byte) (Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	entries := make(map[string]Entry, len(raw))
	for id, value := range raw {
		value = bytes.TrimSpace(value)
		if len(value) > 0 && value[0] == '{' {
			var sized sizedJSON
			if err := json.Unmarshal(value, &sized); err != nil {
				return Snapshot{}, fmt.Errorf("%w: %s: %v", ErrMalformed, id, err)
			}
			if len(sized.ItemsBySize) == 0 {
				return Snapshot{}, fmt.Errorf("%w: %s: aucune taille", ErrMalformed, id)
			}
			for size, q := range sized.ItemsBySize {
				if q <= 0 || size == "" {
					return Snapshot{}, fmt.Errorf("%w: %s (%s): quantité %d", ErrMalformed, id, size, q)
				}
			}
			entries[id] = BySize(sized.ItemsBySize)
			continue
		}

		var q int
		if err := json.Unmarshal(value, &q); err != nil {
			return Snapshot{}, fmt.Errorf("%w: %s: %v", ErrMalformed, id, err)
		}
		if q <= 0 {
			return Snapshot{}, fmt.Errorf("%w: %s: quantité %d", ErrMalformed, id, q)
		}
		entries[id] = Flat(q)
	}
	return Snapshot{entries: entries}, nil
}
