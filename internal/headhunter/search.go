package headhunter

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

const (
	SearchPath = "/vacancies"

	// Sort order requested for every search. The pipeline relies on
	// page 0 holding the newest postings.
	orderByPublication = "publication_time"
)

type SearchParams struct {
	Text string `yaml:"text"`
	// hhparam is custom tag for reflect. Please see below.
	Areas          []int    `hhparam:"area"`
	Schedules      []string `hhparam:"schedule"`
	Salary         uint     `yaml:"salary"`
	OnlyWithSalary bool     `yaml:"only_with_salary" mapstructure:"only_with_salary"`
	OrderBy        string   `yaml:"order_by" mapstructure:"order_by"`
	SearchField    string   `yaml:"search_field" mapstructure:"search_field"`
	PerPage        string   `yaml:"per_page" mapstructure:"per_page"`
	Page           uint     `yaml:"page" hhparam:"page"`
	Experience     string   `yaml:"experience"`
}

func (c *Client) search(params *SearchParams) (*Vacancies, error) {
	var vacancies []*Vacancy

	if params.PerPage == "" {
		params.PerPage = perPage
	}

	if params.OrderBy == "" {
		params.OrderBy = orderByPublication
	}

	q := buildParams(params)
	apiURLSearch := fmt.Sprintf("%s%s", c.APIURL, SearchPath)

	items, err := c.GetItems(apiURLSearch, q)
	if err != nil {
		return nil, err
	}

	cfg := &mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   &vacancies,
		TagName:  "json",
	}
	decoder, _ := mapstructure.NewDecoder(cfg)
	decoder.Decode(items)

	return &Vacancies{
		Items: vacancies,
	}, nil
}

func buildParams(params *SearchParams) url.Values {
	q := url.Values{}
	fields := reflect.VisibleFields(reflect.TypeOf(*params))
	for _, field := range fields {
		// Our custom tag is using here.
		key := field.Tag.Get("hhparam")
		if key == "" {
			// Failover to default tag if our tag do not exist.
			key = field.Tag.Get("yaml")
		}
		kind := field.Type.Kind()
		switch kind {
		case reflect.Slice:

			s := reflect.ValueOf(params).Elem().Field(field.Index[0]).Interface()
			switch v := s.(type) {
			case []int:
				for _, value := range v {
					q.Add(key, strconv.Itoa(value))
				}

			case []string:
				for _, value := range v {
					q.Add(key, value)
				}
			}

		case reflect.Bool:
			if reflect.ValueOf(params).Elem().Field(field.Index[0]).Bool() {
				q.Set(key, "true")
			}

		default:
			value := fmt.Sprintf("%v", reflect.ValueOf(params).Elem().Field(field.Index[0]).Interface())
			if value != "" && value != "0" {
				q.Set(key, value)
			}
		}
	}

	return q
}
