package execution

import (
	"slices"
	"sync"
)

// Caretaker keeps saved requests by their description. Saving the same
// description again replaces the stored request.
type Caretaker struct {
	mx    sync.Mutex
	saved map[string]*Request
	order []string
}

func NewCaretaker() *Caretaker {
	return &Caretaker{
		saved: make(map[string]*Request),
	}
}

func (c *Caretaker) Save(req *Request) {
	if req == nil {
		return
	}
	c.mx.Lock()
	defer c.mx.Unlock()
	if _, ok := c.saved[req.Description()]; !ok {
		c.order = append(c.order, req.Description())
	}
	c.saved[req.Description()] = req
}

// Restore returns the last request saved under description
func (c *Caretaker) Restore(description string) (*Request, bool) {
	c.mx.Lock()
	defer c.mx.Unlock()
	req, ok := c.saved[description]
	return req, ok
}

// Descriptions returns saved descriptions in the order of the first save
func (c *Caretaker) Descriptions() []string {
	c.mx.Lock()
	defer c.mx.Unlock()
	return slices.Clone(c.order)
}

func (c *Caretaker) Len() int {
	c.mx.Lock()
	defer c.mx.Unlock()
	return len(c.saved)
}
