package cache

import (
	"fmt"
	"testing"
	"time"

	"nochatbuilder/models"
)

func TestSetGetDelete(t *testing.T) {
	c := New(0)
	c.Set("k", "v", 0)
	if v, ok := c.Get("k"); !ok || v != "v" {
		t.Fatalf("Get = %v, %v", v, ok)
	}
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Fatal("key survived Delete")
	}
}

func TestExpiry(t *testing.T) {
	c := New(0)
	c.Set("k", "v", 1*time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("fresh key missing")
	}
	// expiry resolution is one second
	time.Sleep(2100 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expired key still returned")
	}
}

func TestLRUEviction(t *testing.T) {
	c := New(2)
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Get("a") // a becomes MRU
	c.Set("c", 3, 0)

	if _, ok := c.Get("b"); ok {
		t.Error("LRU entry b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry a evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("newest entry c missing")
	}
}

func TestChatbotHelpers(t *testing.T) {
	c := New(10)
	bot := &models.Chatbot{Slug: "support", Name: "Support Bot"}
	c.SetChatbot(bot)

	got, ok := c.GetChatbot("support")
	if !ok || got.Name != "Support Bot" {
		t.Fatalf("GetChatbot = %+v, %v", got, ok)
	}
	if _, ok := c.GetChatbot("other"); ok {
		t.Fatal("unknown slug returned a chatbot")
	}

	c.InvalidateChatbot("support")
	if _, ok := c.GetChatbot("support"); ok {
		t.Fatal("chatbot survived invalidation")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New(50)
	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 200; i++ {
				k := fmt.Sprintf("k%d", i%64)
				c.Set(k, g, time.Minute)
				c.Get(k)
			}
		}(g)
	}
	for g := 0; g < 8; g++ {
		<-done
	}
}
