package resources

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/bassista/go_microassur/internal/query"
)

// The partner list changes rarely.
var partnerOptions = query.Options{StaleTime: 10 * time.Minute}

var dashboardOptions = query.Options{StaleTime: time.Minute, RefetchOnFocus: true}

// Partners reads the partner institutions (EMF).
type Partners struct {
	b *base
}

func (p *Partners) List(ctx context.Context) (List, error) {
	if err := p.b.authorize("", Scope{}); err != nil {
		return List{}, err
	}
	return list(ctx, p.b, query.Key{"partners"}, "/emfs", nil, partnerOptions)
}

func (p *Partners) Get(ctx context.Context, id int64) (Record, error) {
	if err := p.b.authorize("", Scope{ID: id}); err != nil {
		return nil, err
	}
	return one(ctx, p.b, query.Key{"partners", id}, "/emfs/"+strconv.FormatInt(id, 10), partnerOptions)
}

// Dashboard reads the per-partner statistics.
type Dashboard struct {
	b *base
}

func statsPath(scope Scope) string {
	return "/dashboard/" + url.PathEscape(scope.Type) + "/stats"
}

func (d *Dashboard) Stats(ctx context.Context, scope Scope) (Record, error) {
	if err := d.check(scope); err != nil {
		return nil, err
	}
	return one(ctx, d.b, query.Key{"dashboard", scope.Type}, statsPath(scope), dashboardOptions)
}

func (d *Dashboard) WatchStats(scope Scope, listener func(query.State)) (*query.Subscription, error) {
	if err := d.check(scope); err != nil {
		return nil, err
	}
	return watch(d.b, query.Key{"dashboard", scope.Type}, d.b.fetchOne(statsPath(scope)), dashboardOptions, listener), nil
}

func (d *Dashboard) check(scope Scope) error {
	if err := validateScope(scope); err != nil {
		return err
	}
	return d.b.authorize("", scope)
}
