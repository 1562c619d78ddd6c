package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubscribe_ReceivesPublishedMessage(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Publish(Message{Kind: KindTrade, Trade: &TradeUpdate{Market: "m1", Quantity: 5}})

	msg := <-ch
	require.Equal(t, KindTrade, msg.Kind)
	require.Equal(t, "m1", msg.Trade.Market)
}

func TestPublish_FansOutToEverySubscriber(t *testing.T) {
	b := New()
	ch1, unsub1 := b.Subscribe()
	defer unsub1()
	ch2, unsub2 := b.Subscribe()
	defer unsub2()

	b.Publish(Message{Kind: KindBalance, Balance: &BalanceUpdate{User: "u1"}})

	require.Equal(t, "u1", (<-ch1).Balance.User)
	require.Equal(t, "u1", (<-ch2).Balance.User)
}

func TestUnsubscribe_ClosesChannel(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe()
	unsub()

	_, ok := <-ch
	require.False(t, ok)
}

func TestPublish_NeverBlocksOnFullSubscriberBuffer(t *testing.T) {
	b := New()
	_, unsub := b.Subscribe()
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			b.Publish(Message{Kind: KindMarket, Market: &MarketUpdate{Market: "m1", Event: MarketEventUpdated}})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked despite a full subscriber buffer")
	}
}
