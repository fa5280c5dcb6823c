package render

import "container/list"

// poolCapPerKey is K: the maximum number of idle textures retained per
// (width, height, format) key before the pool starts evicting.
const poolCapPerKey = 4

// texturePool recycles device textures keyed by (width, height,
// format) so resizing a window repeatedly (or a client recreating
// same-size buffers) doesn't thrash allocation. Eviction is LRU across
// the whole pool once it exceeds its overall cap, matching §4.C's
// "Eviction strategy is LRU when the pool exceeds its cap."
type texturePool struct {
	dev Device

	// idle holds textures not currently bound to any window, per key,
	// most-recently-returned at the back.
	idle map[TextureKey]*list.List

	// lru threads every idle texture across all keys in global
	// least-recently-used order, so eviction doesn't play favorites
	// between keys.
	lru      *list.List
	lruEntry map[*Texture]*list.Element

	cap int
}

func newTexturePool(dev Device, capTotal int) *texturePool {
	return &texturePool{
		dev:      dev,
		idle:     make(map[TextureKey]*list.List),
		lru:      list.New(),
		lruEntry: make(map[*Texture]*list.Element),
		cap:      capTotal,
	}
}

// acquire returns a reusable idle texture for key, or nil if none is
// available (the caller must then CreateTexture).
func (p *texturePool) acquire(key TextureKey) *Texture {
	bucket, ok := p.idle[key]
	if !ok || bucket.Len() == 0 {
		return nil
	}
	el := bucket.Back()
	bucket.Remove(el)
	tex := el.Value.(*Texture)
	if lruEl, ok := p.lruEntry[tex]; ok {
		p.lru.Remove(lruEl)
		delete(p.lruEntry, tex)
	}
	return tex
}

// release returns tex to the pool, retaining up to poolCapPerKey idle
// textures per key; a texture beyond that is destroyed immediately. If
// the pool then exceeds its total cap, the least-recently released idle
// textures are destroyed.
func (p *texturePool) release(tex *Texture) {
	bucket := p.idle[tex.Key]
	if bucket == nil {
		bucket = list.New()
		p.idle[tex.Key] = bucket
	}
	if bucket.Len() >= poolCapPerKey {
		p.dev.DestroyTexture(tex.Handle)
		return
	}
	el := bucket.PushBack(tex)
	p.lruEntry[tex] = p.lru.PushFront(keyedElement{key: tex.Key, el: el, tex: tex})
	p.evictOverCap()
}

// keyedElement lets the global LRU list remove an entry from its
// per-key bucket in O(1) without a type assertion back to *list.List.
type keyedElement struct {
	key TextureKey
	el  *list.Element
	tex *Texture
}

func (p *texturePool) evictOverCap() {
	total := 0
	for _, b := range p.idle {
		total += b.Len()
	}
	for total > p.cap && p.lru.Len() > 0 {
		oldest := p.lru.Back()
		ke := oldest.Value.(keyedElement)
		p.lru.Remove(oldest)
		delete(p.lruEntry, ke.tex)
		if bucket := p.idle[ke.key]; bucket != nil {
			bucket.Remove(ke.el)
		}
		p.dev.DestroyTexture(ke.tex.Handle)
		total--
	}
}

// clear destroys every idle texture; used on shutdown.
func (p *texturePool) clear() {
	for key, bucket := range p.idle {
		for el := bucket.Front(); el != nil; el = el.Next() {
			p.dev.DestroyTexture(el.Value.(*Texture).Handle)
		}
		delete(p.idle, key)
	}
	p.lru.Init()
	p.lruEntry = make(map[*Texture]*list.Element)
}
