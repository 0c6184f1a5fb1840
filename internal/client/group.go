package client

import (
	"fmt"
	"sort"
	"strings"

	"github.com/snoopyylion/hojo-radio-sub001/internal/models"
)

// GroupWindow is the maximum spread between a record and the anchor of the
// group it may join.
const GroupWindow = 24 * 60 * 60 // seconds

const PageSize = 10

// GroupNotifications derives display groups from the raw record set. Message
// records are grouped per sender with a rolling window: walking newest first,
// a record joins the sender's most recent open group only if it falls within
// 24h of that group's anchor (the record that opened it), otherwise it opens
// a new group. Likes, comments and mentions bucket by (type, post, calendar
// day); follows by (actor, calendar day). Groups with fewer than two members
// collapse back to standalone entries.
func GroupNotifications(records []models.Notification) []models.GroupedNotification {
	sorted := make([]models.Notification, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	var order []string
	members := map[string][]models.Notification{}
	openGroup := map[string]string{}  // sender id -> key of most recent open message group
	anchor := map[string]int64{}      // message group key -> anchor unix time
	seq := 0

	for _, n := range sorted {
		var key string
		switch n.Type {
		case models.NotifTypeMessage:
			sender := n.Actor.ID
			if k, ok := openGroup[sender]; ok && anchor[k]-n.CreatedAt.Unix() <= GroupWindow {
				key = k
			} else {
				seq++
				key = fmt.Sprintf("message|%s|%d", sender, seq)
				openGroup[sender] = key
				anchor[key] = n.CreatedAt.Unix()
			}
		case models.NotifTypeLike, models.NotifTypeComment, models.NotifTypeMention:
			key = fmt.Sprintf("%s|%s|%d", n.Type, n.PostID, n.CreatedAt.Unix()/GroupWindow)
		case models.NotifTypeFollow:
			key = fmt.Sprintf("follow|%s|%d", n.Actor.ID, n.CreatedAt.Unix()/GroupWindow)
		default:
			key = "single|" + n.ID
		}
		if _, ok := members[key]; !ok {
			order = append(order, key)
		}
		members[key] = append(members[key], n)
	}

	// The walk is newest-first, so first-seen key order is already sorted by
	// most recent activity.
	groups := make([]models.GroupedNotification, 0, len(order))
	for _, key := range order {
		ms := members[key]
		unread := 0
		for _, m := range ms {
			if !m.Read {
				unread++
			}
		}
		g := models.GroupedNotification{
			GroupKey:    key,
			Members:     ms,
			UnreadCount: unread,
			IsGrouped:   len(ms) >= 2,
			LatestAt:    ms[0].CreatedAt,
		}
		if g.IsGrouped {
			g.Summary = summarize(ms)
		} else {
			g.Summary = ms[0].Title
		}
		groups = append(groups, g)
	}
	return groups
}

func summarize(members []models.Notification) string {
	n := len(members)
	switch members[0].Type {
	case models.NotifTypeMessage:
		return fmt.Sprintf("%s sent %d messages", actorName(members[0]), n)
	case models.NotifTypeLike:
		if d := distinctActors(members); d > 1 {
			return fmt.Sprintf("%d people liked your post", d)
		}
		return fmt.Sprintf("%s liked your post", actorName(members[0]))
	case models.NotifTypeComment:
		if d := distinctActors(members); d > 1 {
			return fmt.Sprintf("%d people commented on your post", d)
		}
		return fmt.Sprintf("%s left %d comments on your post", actorName(members[0]), n)
	case models.NotifTypeMention:
		if d := distinctActors(members); d > 1 {
			return fmt.Sprintf("%d people mentioned you", d)
		}
		return fmt.Sprintf("%s mentioned you %d times", actorName(members[0]), n)
	case models.NotifTypeFollow:
		return fmt.Sprintf("%s started following you", actorName(members[0]))
	}
	return members[0].Title
}

func actorName(n models.Notification) string {
	if n.Actor.Name != "" {
		return n.Actor.Name
	}
	return "Someone"
}

func distinctActors(members []models.Notification) int {
	seen := map[string]struct{}{}
	for _, m := range members {
		seen[m.Actor.ID] = struct{}{}
	}
	return len(seen)
}

type Category string

const (
	CategoryAll       Category = "all"
	CategoryMessaging Category = "messaging"
	CategorySocial    Category = "social"
	CategorySystem    Category = "system"
)

type ReadFilter int

const (
	ReadAny ReadFilter = iota
	ReadUnread
	ReadDone
)

type ListFilter struct {
	Category Category
	Read     ReadFilter
	Query    string
}

func groupCategory(g models.GroupedNotification) Category {
	switch g.Members[0].Type {
	case models.NotifTypeMessage:
		return CategoryMessaging
	case models.NotifTypeLike, models.NotifTypeComment,
		models.NotifTypeFollow, models.NotifTypeMention:
		return CategorySocial
	}
	return CategorySystem
}

// FilterGroups applies category, read-state and free-text filters, keeping
// the input order.
func FilterGroups(groups []models.GroupedNotification, f ListFilter) []models.GroupedNotification {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := []models.GroupedNotification{}
	for _, g := range groups {
		if f.Category != "" && f.Category != CategoryAll && groupCategory(g) != f.Category {
			continue
		}
		if f.Read == ReadUnread && g.UnreadCount == 0 {
			continue
		}
		if f.Read == ReadDone && g.UnreadCount > 0 {
			continue
		}
		if query != "" && !groupMatches(g, query) {
			continue
		}
		out = append(out, g)
	}
	return out
}

func groupMatches(g models.GroupedNotification, query string) bool {
	if strings.Contains(strings.ToLower(g.Summary), query) {
		return true
	}
	for _, m := range g.Members {
		if strings.Contains(strings.ToLower(m.Title), query) ||
			strings.Contains(strings.ToLower(m.Text), query) ||
			strings.Contains(strings.ToLower(m.Actor.Name), query) {
			return true
		}
	}
	return false
}

// Paginate slices groups into fixed-size pages. Pages are 1-based; an
// out-of-range page clamps to the nearest valid one.
func Paginate(groups []models.GroupedNotification, page int) ([]models.GroupedNotification, int) {
	totalPages := (len(groups) + PageSize - 1) / PageSize
	if totalPages == 0 {
		return nil, 0
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * PageSize
	end := start + PageSize
	if end > len(groups) {
		end = len(groups)
	}
	return groups[start:end], totalPages
}
