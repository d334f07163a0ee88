// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"hash"
	"sync"
)

type handshakeCacheItem struct {
	typ  handshakeType
	data []byte
}

// handshakeCache holds the transcript, every handshake message sent or
// received in order, with the initial ClientHello and HelloVerifyRequest
// excluded per RFC 6347 §4.2.6. The cached bytes include the 12 byte
// handshake header with the fragment fields covering the whole message.
type handshakeCache struct {
	cache []*handshakeCacheItem
	mu    sync.Mutex
}

func newHandshakeCache() *handshakeCache {
	return &handshakeCache{}
}

func (h *handshakeCache) push(typ handshakeType, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cache = append(h.cache, &handshakeCacheItem{typ: typ, data: append([]byte{}, data...)})
}

// bytes returns the whole transcript concatenated.
func (h *handshakeCache) bytes() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := []byte{}
	for _, item := range h.cache {
		out = append(out, item.data...)
	}

	return out
}

// bytesUpTo concatenates the transcript until (excluding) the first
// occurrence of the given type.
func (h *handshakeCache) bytesUpTo(exclusive handshakeType) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := []byte{}
	for _, item := range h.cache {
		if item.typ == exclusive {
			break
		}
		out = append(out, item.data...)
	}

	return out
}

// sessionHash computes the Extended Master Secret session hash over the
// transcript up to and including ClientKeyExchange.
func (h *handshakeCache) sessionHash(hf func() hash.Hash) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	hasher := hf()
	for _, item := range h.cache {
		if _, err := hasher.Write(item.data); err != nil {
			return nil, err
		}
		if item.typ == handshakeTypeClientKeyExchange {
			break
		}
	}

	return hasher.Sum(nil), nil
}
