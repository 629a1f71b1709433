// Copyright (c) 2024 PT Defender Nusa Semesta and contributors, All rights reserved.
//
// This file is part of PPP Connectors.
//
// PPP Connectors is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation version 3 of the License.
//
// PPP Connectors is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with PPP Connectors. If not, see <https://www.gnu.org/licenses/>.

package connector

import (
	"sort"

	"github.com/defenxor/ppp-connectors/internal/pkg/shared/str"
	"github.com/defenxor/ppp-connectors/pkg/broker"
)

// Service names.
const (
	Flashpoint   = "flashpoint"
	IPQS         = "ipqs"
	SpyCloud     = "spycloud"
	TwilioLookup = "twilio-lookup"
	TwilioAPI    = "twilio-api"
	URLScan      = "urlscan"
)

var services = map[string]string{
	Flashpoint:   "https://api.flashpoint.io",
	IPQS:         "https://ipqualityscore.com",
	SpyCloud:     "https://api.spycloud.io",
	TwilioLookup: "https://lookups.twilio.com",
	TwilioAPI:    "https://api.twilio.com",
	URLScan:      "https://urlscan.io",
}

// Services returns the service names and their base URLs.
func Services() map[string]string {
	m := make(map[string]string, len(services))
	for k, v := range services {
		m[k] = v
	}
	return m
}

var flashpointHeader = map[string]string{
	"accept":        "application/json",
	"content-type":  "application/json",
	"Authorization": "Bearer ${FLASHPOINT_API_KEY}",
}

var twilioAuth = &BasicAuth{UserKey: "TWILIO_API_SID", PasswordKey: "TWILIO_API_SECRET"}

// operations must stay sorted by name.
var operations = []Operation{
	{
		Name:         "flashpoint_get_media_image",
		Service:      Flashpoint,
		Method:       broker.GET,
		Path:         "/sources/v1/media/",
		RequiredKeys: []string{"FLASHPOINT_API_KEY"},
		Header:       flashpointHeader,
		Params: []Param{
			{Name: "storage_uri", Key: "asset_id", In: InQuery, Required: true},
		},
		Summary: "Download the media of a media object by its storage_uri field",
	},
	{
		Name:         "flashpoint_get_media_object",
		Service:      Flashpoint,
		Method:       broker.GET,
		Path:         "/sources/v2/media/{id}",
		RequiredKeys: []string{"FLASHPOINT_API_KEY"},
		Header:       flashpointHeader,
		Params: []Param{
			{Name: "id", In: InPath, Required: true},
		},
		Summary: "Look up a media document by its media ID",
	},
	{
		Name:         "flashpoint_search_communities",
		Service:      Flashpoint,
		Method:       broker.POST,
		Path:         "/sources/v2/communities",
		RequiredKeys: []string{"FLASHPOINT_API_KEY"},
		Header:       flashpointHeader,
		Params: []Param{
			{Name: "query", In: InJSON, Required: true},
		},
		Passthrough: InJSON,
		Summary:     "Search article and conversation data (blogs, paste sites, chats, forums, social media)",
	},
	{
		Name:         "flashpoint_search_media",
		Service:      Flashpoint,
		Method:       broker.POST,
		Path:         "/sources/v2/media",
		RequiredKeys: []string{"FLASHPOINT_API_KEY"},
		Header:       flashpointHeader,
		Params: []Param{
			{Name: "query", In: InJSON, Required: true},
		},
		Passthrough: InJSON,
		Summary:     "Search OCR-processed media text, classifications and logos",
	},
	{
		Name:         "ipqs_malicious_url",
		Service:      IPQS,
		Method:       broker.POST,
		Path:         "/api/json/url",
		RequiredKeys: []string{"IPQS_API_KEY"},
		Header:       map[string]string{"accept": "application/json"},
		Credential:   &Credential{ConfigKey: "IPQS_API_KEY", Name: "key", In: InJSON},
		Params: []Param{
			{Name: "query", Key: "url", In: InJSON, Required: true, Encode: Quote},
		},
		Passthrough: InJSON,
		Summary:     "Scan a URL for phishing, malware, parking and other risk signals",
	},
	{
		Name:         "spycloud_sip_cookie_domains",
		Service:      SpyCloud,
		Method:       broker.GET,
		Path:         "/sip-v1/breach/data/cookie-domains/{cookie_domains}",
		RequiredKeys: []string{"SPYCLOUD_API_SIP_KEY"},
		Header: map[string]string{
			"accept":    "application/json",
			"x-api-key": "${SPYCLOUD_API_SIP_KEY}",
		},
		Params: []Param{
			{Name: "cookie_domains", In: InPath, Required: true},
		},
		Passthrough: InQuery,
		Summary:     "List breach records holding stolen cookies for the given domains",
	},
	{
		Name:         "twilio_lookup",
		Service:      TwilioLookup,
		Method:       broker.GET,
		Path:         "/v2/PhoneNumbers/{phone_number}",
		RequiredKeys: []string{"TWILIO_API_SID", "TWILIO_API_SECRET"},
		Auth:         twilioAuth,
		Params: []Param{
			{Name: "phone_number", In: InPath, Required: true},
			{Name: "data_packages", Key: "Fields", In: InQuery,
				Default: empty, Validate: validateDataPackages, Encode: str.NormalizeCSV},
		},
		Passthrough: InQuery,
		Summary:     "Format and validate a phone number, optionally with carrier and caller data packages",
	},
	{
		Name:         "twilio_usage_report",
		Service:      TwilioAPI,
		Method:       broker.GET,
		Path:         "/2010-04-01/Accounts/${TWILIO_ACCOUNT_SID}/Usage/Records.json",
		RequiredKeys: []string{"TWILIO_ACCOUNT_SID", "TWILIO_API_SID", "TWILIO_API_SECRET"},
		Auth:         twilioAuth,
		Params: []Param{
			{Name: "start_date", Key: "StartDate", In: InQuery, Required: true, Validate: validateDate},
			{Name: "end_date", Key: "EndDate", In: InQuery, Default: today, Validate: validateDate},
		},
		Summary: "Usage records between start_date and end_date (YYYY-MM-DD, GMT)",
	},
	{
		Name:         "urlscan_search",
		Service:      URLScan,
		Method:       broker.GET,
		Path:         "/api/v1/search/",
		RequiredKeys: []string{"URLSCAN_API_KEY"},
		Header: map[string]string{
			"accept":  "application/json",
			"API-Key": "${URLSCAN_API_KEY}",
		},
		Params: []Param{
			{Name: "query", Key: "q", In: InQuery, Required: true},
		},
		Passthrough: InQuery,
		Summary:     "Find archived scans of URLs (ElasticSearch query string syntax)",
	},
}

var byName = func() map[string]int {
	m := make(map[string]int, len(operations))
	for i, op := range operations {
		m[op.Name] = i
	}
	return m
}()

// Operations returns every operation, sorted by name.
func Operations() []Operation {
	ops := append([]Operation{}, operations...)
	sort.Slice(ops, func(i, j int) bool { return ops[i].Name < ops[j].Name })
	return ops
}

// Lookup returns the operation called name.
func Lookup(name string) (Operation, bool) {
	i, ok := byName[name]
	if !ok {
		return Operation{}, false
	}
	return operations[i], true
}
