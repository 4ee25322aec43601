// Package search maintains a local full-text index over reconciled
// messages, so chat history stays searchable offline. This is distinct from
// any server-side search vendor.
package search

import (
	"context"
	"log/slog"

	"github.com/blugelabs/bluge"

	"chat-sync/domain"
)

type Hit struct {
	MessageID      string
	ConversationID string
	Body           string
	Score          float64
}

// Index wraps a bluge writer. Updates are keyed by message id, so the echo
// of an optimistic send replaces the pending entry instead of duplicating it,
// mirroring the store's reconciliation semantics.
type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewIndex(writer *bluge.Writer, log *slog.Logger) *Index {
	return &Index{writer: writer, log: log}
}

func (ix *Index) IndexMessage(conversationID string, msg domain.Message) error {
	doc := bluge.NewDocument(msg.ID).
		AddField(bluge.NewTextField("body", msg.Body).StoreValue()).
		AddField(bluge.NewKeywordField("conversation", conversationID).StoreValue()).
		AddField(bluge.NewKeywordField("author", msg.AuthorID)).
		AddField(bluge.NewDateTimeField("sentAt", msg.SentAt))
	return ix.writer.Update(doc.ID(), doc)
}

func (ix *Index) RemoveMessage(messageID string) error {
	return ix.writer.Delete(bluge.Identifier(messageID))
}

// Search returns the best matches for term, optionally scoped to one
// conversation.
func (ix *Index) Search(ctx context.Context, term, conversationID string, limit int) ([]Hit, error) {
	reader, err := ix.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			ix.log.Warn("closing index reader", "error", err)
		}
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(term).SetField("body"))
	if conversationID != "" {
		query.AddMust(bluge.NewTermQuery(conversationID).SetField("conversation"))
	}

	if limit <= 0 {
		limit = 10
	}
	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		hit := Hit{Score: match.Score}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID = string(value)
			case "conversation":
				hit.ConversationID = string(value)
			case "body":
				hit.Body = string(value)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
