package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/go-logr/logr"
	"github.com/henderiw/intervalcollection/pkg/interval"
	"github.com/henderiw/intervalcollection/pkg/property"
	"github.com/henderiw/intervalcollection/pkg/sequence"
	"github.com/henderiw/intervalcollection/pkg/store"
	"github.com/henderiw/intervalcollection/pkg/valuemap"
	"github.com/henderiw/intervalcollection/pkg/valuetype"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/klog/v2"
)

const (
	initialText = "the quick brown fox jumps over the lazy dog"
	commentsKey = "comments"
)

var (
	dir       = flag.String("dir", "", "badger directory for the snapshot, in memory when empty")
	codecName = flag.String("codec", "json", "op and snapshot codec: json or msgpack")
)

// client is one participant: its view of the text and the map hosting the
// comments collection.
type client struct {
	id        int
	text      *sequence.Text
	m         valuemap.Map
	comments  *interval.SharedCollection
	scheduler *valuetype.Scheduler
}

// sequencer assigns sequence numbers to submitted ops and broadcasts them.
type sequencer struct {
	m       sync.Mutex
	seq     int
	pending []*valuetype.SequencedMessage
}

func (r *sequencer) submit(clientID int, refSeq int, key string, op valuetype.Op) {
	r.m.Lock()
	defer r.m.Unlock()
	r.pending = append(r.pending, &valuetype.SequencedMessage{
		ReferenceSequenceNumber: refSeq,
		ClientID:                clientID,
		Key:                     key,
		Op:                      op,
	})
}

func (r *sequencer) nextSeq() int {
	r.m.Lock()
	defer r.m.Unlock()
	r.seq++
	return r.seq
}

func (r *sequencer) flush(ctx context.Context, clients []*client) error {
	r.m.Lock()
	pending := r.pending
	r.pending = nil
	r.m.Unlock()

	for _, msg := range pending {
		msg.SequenceNumber = r.nextSeq()
		for _, c := range clients {
			if err := c.scheduler.Submit(ctx, msg); err != nil {
				return err
			}
		}
	}
	return nil
}

func newClient(l logr.Logger, id int, reg valuetype.Registry, codec valuetype.Codec, seqr *sequencer) (*client, error) {
	l = l.WithValues("client", id)
	c := &client{
		id:   id,
		text: sequence.NewText(id, initialText, sequence.WithLogger(l)),
	}
	c.m = valuemap.New(id, reg,
		valuemap.WithLogger(l),
		valuemap.WithCodec(codec),
		valuemap.WithSubmitter(func(key string, op valuetype.Op) {
			seqr.submit(id, c.text.CurrentSeq(), key, op)
		}),
	)
	if _, err := c.m.Set(commentsKey, interval.ValueTypeName); err != nil {
		return nil, err
	}
	comments, err := valuemap.GetAs[*interval.SharedCollection](c.m, commentsKey)
	if err != nil {
		return nil, err
	}
	comments.Initialize(c.text, commentsKey)
	c.comments = comments
	c.scheduler = valuetype.NewScheduler(c.m, 64, valuetype.WithSchedulerLogger(l))
	return c, nil
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	l := klog.NewKlogr()
	if err := run(context.Background(), l); err != nil {
		l.Error(err, "demo failed")
		klog.Flush()
		os.Exit(1)
	}
	klog.Flush()
}

func run(ctx context.Context, l logr.Logger) error {
	var codec valuetype.Codec
	switch *codecName {
	case "json":
		codec = valuetype.JSON
	case "msgpack":
		codec = valuetype.MsgPack
	default:
		return fmt.Errorf("unknown codec %q", *codecName)
	}

	reg, err := valuetype.NewRegistry(interval.NewHandler(interval.WithLogger(l)))
	if err != nil {
		return err
	}

	seqr := &sequencer{}
	clients := []*client{}
	for id := 1; id <= 2; id++ {
		c, err := newClient(l, id, reg, codec, seqr)
		if err != nil {
			return err
		}
		c.comments.Subscribe(interval.ListenerFunc(func(e interval.AddIntervalEvent) {
			if e.Interval == nil {
				return
			}
			l.Info("interval added", "client", c.id, "local", e.Local, "interval", e.Interval.String())
		}))
		clients = append(clients, c)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(clients))
	for i, c := range clients {
		i, c := i, c
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = c.scheduler.Run(ctx)
		}()
	}

	// client 1 comments on "quick", client 2 on "lazy dog"
	if err := clients[0].comments.Add(4, 8, interval.Simple, property.Set{"author": "alice"}); err != nil {
		return err
	}
	if err := clients[1].comments.Add(35, 42, interval.Simple, property.Set{"author": "bob"}); err != nil {
		return err
	}
	if err := seqr.flush(ctx, clients); err != nil {
		return err
	}

	for _, c := range clients {
		c.scheduler.Close()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	// client 2 inserts at the start of the text; every replica applies it once the
	// interval ops are processed
	insertSeq := seqr.nextSeq()
	for _, c := range clients {
		if err := c.text.Insert(0, "note: ", sequence.Stamp{Seq: insertSeq, RefSeq: insertSeq - 1, ClientID: 2}); err != nil {
			return err
		}
	}

	for _, c := range clients {
		for _, i := range c.comments.FindOverlappingIntervals(0, c.text.Length()) {
			si := i.Serialize(c.text)
			fmt.Printf("client %d: [%d,%d] %q by %v\n", c.id, si.StartPosition, si.EndPosition,
				c.text.String()[si.StartPosition:si.EndPosition+1], si.Properties["author"])
		}
		sel := labels.SelectorFromSet(labels.Set{"author": "bob"})
		fmt.Printf("client %d: %d interval(s) by bob\n", c.id, len(c.comments.GetByLabel(sel)))
	}

	var opts []store.BadgerOption
	if *dir == "" {
		opts = append(opts, store.WithInMemory())
	}
	st, err := store.NewBadgerStore(*dir, append(opts, store.WithLogger(l))...)
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := clients[0].m.Snapshot(ctx, st)
	if err != nil {
		return err
	}

	restored := valuemap.New(3, reg, valuemap.WithLogger(l), valuemap.WithCodec(codec))
	if err := restored.Load(ctx, st); err != nil {
		return err
	}
	comments, err := valuemap.GetAs[*interval.SharedCollection](restored, commentsKey)
	if err != nil {
		return err
	}
	text := sequence.NewText(3, clients[0].text.String())
	comments.Initialize(text, commentsKey)
	fmt.Printf("snapshot %s restored %d interval(s)\n", id, comments.Len())
	return nil
}
