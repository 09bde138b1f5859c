package generator

import "errors"

var errNotIndex = errors.New("root element is not sitemapindex")
