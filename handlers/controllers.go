package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	errs "github.com/lumen-media-search/v1/service/errs"
	ingestion "github.com/lumen-media-search/v1/service/ingestion"
	models "github.com/lumen-media-search/v1/service/models"
	search "github.com/lumen-media-search/v1/service/search"
)

func HandlerHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Ok")
}

type SearchRequest struct {
	Query  string `json:"query"`
	ItemID string `json:"itemId"`
	TopK   int    `json:"topK"`
}

type SearchResponse struct {
	Query   string                `json:"query"`
	Results []search.SearchResult `json:"results"`
}

func HandlerSearch(searchService *search.SearchService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		decoder := json.NewDecoder(r.Body)
		var payload SearchRequest
		err := decoder.Decode(&payload)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, err.Error())
			return
		}
		results, err := searchService.Search(payload.Query, payload.ItemID, payload.TopK)
		if errors.Is(err, errs.ErrInvalidArgument) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, err.Error())
			return
		}
		if err != nil {
			log.Printf("search failed: %s", err)
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprintf(w, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(SearchResponse{
			Query:   payload.Query,
			Results: results,
		})
	}
}

// HandlerS3Notification accepts an S3 event document directly, bypassing the
// queue. Record failures are logged but the event is acknowledged either way;
// the caller has no redelivery path.
func HandlerS3Notification(trigger *ingestion.TriggerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		decoder := json.NewDecoder(r.Body)
		var event models.S3Event
		err := decoder.Decode(&event)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, err.Error())
			return
		}
		for _, record := range event.Records {
			err = trigger.HandleObjectCreated(record)
			if err != nil {
				log.Printf("failed handling record %s: %s", record.S3.Object.Key, err)
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Ok")
	}
}
