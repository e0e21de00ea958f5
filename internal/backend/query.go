package backend

import (
	"net/url"
	"strconv"
	"strings"
)

// Query renders the filters the way the run listing endpoint expects them
func (f ListRunsFilters) Query() url.Values {
	q := url.Values{}

	setList := func(key string, values []string) {
		if len(values) > 0 {
			q.Set(key, strings.Join(values, ","))
		}
	}
	setString := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}

	setList("filter[status]", f.Status)
	setList("filter[taskIdentifier]", f.TaskIdentifier)
	setList("filter[version]", f.Version)
	setList("filter[tag]", f.Tag)

	if f.From != nil {
		q.Set("filter[createdAt][from]", strconv.FormatInt(f.From.UnixMilli(), 10))
	}
	if f.To != nil {
		q.Set("filter[createdAt][to]", strconv.FormatInt(f.To.UnixMilli(), 10))
	}
	setString("filter[createdAt][period]", f.Period)
	setString("filter[bulkAction]", f.BulkAction)
	setString("filter[schedule]", f.Schedule)
	setString("filter[batch]", f.Batch)

	if f.IsTest != nil {
		q.Set("filter[isTest]", strconv.FormatBool(*f.IsTest))
	}

	return q
}
