// Package calendar mirrors the scheduled raids of a guild into a Notion
// database, one page per raid.
package calendar

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dstotijn/go-notion"
	"github.com/sirupsen/logrus"
	"github.com/sokdak/raid-bot/pkg/model"
)

const (
	PropertyTitle  = "Name"
	PropertyWhen   = "When"
	PropertyTier   = "Tier"
	PropertyGuild  = "GuildID"
	PropertyRaid   = "RaidID"
	PropertyHash   = "RaidHash"
	PropertyStatus = "Status"

	StatusScheduled = "Scheduled"
	StatusClosed    = "Closed"
)

// Pages is the part of the Notion API the sync uses.
type Pages interface {
	QueryDatabase(ctx context.Context, id string, query *notion.DatabaseQuery) (notion.DatabaseQueryResponse, error)
	CreatePage(ctx context.Context, params notion.CreatePageParams) (notion.Page, error)
	UpdatePage(ctx context.Context, pageID string, params notion.UpdatePageParams) (notion.Page, error)
}

type RaidLister interface {
	ListGuildRaids(ctx context.Context, guildID string) ([]model.Raid, error)
}

type Notion struct {
	client     Pages
	raids      RaidLister
	databaseID string

	// syncs of one guild must not interleave or pages get duplicated
	mu  sync.Mutex
	log *logrus.Entry
}

func NewNotion(client Pages, raids RaidLister, databaseID string) *Notion {
	return &Notion{
		client:     client,
		raids:      raids,
		databaseID: databaseID,
		log:        logrus.WithField("component", "calendar"),
	}
}

// RaidsChanged brings the database in line with the guild's current raids.
// Pages of raids that no longer exist are marked closed.
func (n *Notion) RaidsChanged(ctx context.Context, guildID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	raids, err := n.raids.ListGuildRaids(ctx, guildID)
	if err != nil {
		return err
	}
	pages, err := n.guildPages(ctx, guildID)
	if err != nil {
		return err
	}

	created, updated, closed := 0, 0, 0
	for i := range raids {
		raid := &raids[i]
		key := strconv.FormatUint(uint64(raid.ID), 10)
		page, ok := pages[key]
		delete(pages, key)

		sum := digest(raid)
		if !ok {
			if err := n.create(ctx, raid, sum); err != nil {
				return err
			}
			created++
			continue
		}
		if richText(page, PropertyHash) == sum && status(page) == StatusScheduled {
			continue
		}
		if _, err := n.client.UpdatePage(ctx, page.ID, notion.UpdatePageParams{
			DatabasePageProperties: properties(raid, sum),
		}); err != nil {
			return fmt.Errorf("error updating page of raid %d: %w", raid.ID, err)
		}
		updated++
	}

	for key, page := range pages {
		if status(page) == StatusClosed {
			continue
		}
		if _, err := n.client.UpdatePage(ctx, page.ID, notion.UpdatePageParams{
			DatabasePageProperties: notion.DatabasePageProperties{
				PropertyStatus: notion.DatabasePageProperty{Select: &notion.SelectOptions{Name: StatusClosed}},
			},
		}); err != nil {
			return fmt.Errorf("error closing page of raid %s: %w", key, err)
		}
		closed++
	}

	n.log.WithFields(logrus.Fields{
		"guild_id": guildID,
		"created":  created,
		"updated":  updated,
		"closed":   closed,
	}).Debug("calendar synced")
	return nil
}

// guildPages returns the guild's pages keyed by raid id.
func (n *Notion) guildPages(ctx context.Context, guildID string) (map[string]notion.Page, error) {
	out := make(map[string]notion.Page)
	query := &notion.DatabaseQuery{
		Filter: &notion.DatabaseQueryFilter{
			Property: PropertyGuild,
			DatabaseQueryPropertyFilter: notion.DatabaseQueryPropertyFilter{
				RichText: &notion.TextPropertyFilter{
					Equals: guildID,
				},
			},
		},
	}
	for {
		res, err := n.client.QueryDatabase(ctx, n.databaseID, query)
		if err != nil {
			return nil, fmt.Errorf("error querying database: %w", err)
		}
		for _, page := range res.Results {
			if key := richText(page, PropertyRaid); key != "" {
				out[key] = page
			}
		}
		if !res.HasMore || res.NextCursor == nil {
			return out, nil
		}
		query.StartCursor = *res.NextCursor
	}
}

func (n *Notion) create(ctx context.Context, raid *model.Raid, sum string) error {
	props := properties(raid, sum)
	props[PropertyGuild] = textProperty(raid.GuildID)
	props[PropertyRaid] = textProperty(strconv.FormatUint(uint64(raid.ID), 10))

	_, err := n.client.CreatePage(ctx, notion.CreatePageParams{
		ParentID:               n.databaseID,
		ParentType:             "database_id",
		DatabasePageProperties: &props,
	})
	if err != nil {
		return fmt.Errorf("error creating page of raid %d: %w", raid.ID, err)
	}
	return nil
}

func properties(raid *model.Raid, sum string) notion.DatabasePageProperties {
	return notion.DatabasePageProperties{
		PropertyTitle: notion.DatabasePageProperty{
			Title: []notion.RichText{{Text: &notion.Text{Content: raid.Name}}},
		},
		PropertyWhen: notion.DatabasePageProperty{
			Date: &notion.Date{Start: notion.NewDateTime(time.Unix(raid.ScheduledTime, 0).UTC(), true)},
		},
		PropertyTier:   textProperty(raid.Tier),
		PropertyHash:   textProperty(sum),
		PropertyStatus: notion.DatabasePageProperty{Select: &notion.SelectOptions{Name: StatusScheduled}},
	}
}

func textProperty(s string) notion.DatabasePageProperty {
	return notion.DatabasePageProperty{
		RichText: []notion.RichText{{Text: &notion.Text{Content: s}}},
	}
}

// digest covers every field written to a page.
func digest(raid *model.Raid) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%d", raid.Name, raid.Tier, raid.ScheduledTime)))
	return hex.EncodeToString(h[:])
}

func richText(page notion.Page, name string) string {
	props, ok := page.Properties.(notion.DatabasePageProperties)
	if !ok {
		return ""
	}
	prop, ok := props[name]
	if !ok {
		return ""
	}
	var s string
	for _, rt := range prop.RichText {
		s += rt.PlainText
	}
	return s
}

func status(page notion.Page) string {
	props, ok := page.Properties.(notion.DatabasePageProperties)
	if !ok {
		return ""
	}
	if prop, ok := props[PropertyStatus]; ok && prop.Select != nil {
		return prop.Select.Name
	}
	return ""
}
