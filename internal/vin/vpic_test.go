package vin

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const vpicBody = `{"Results":[
	{"Variable":"Model Year","Value":"1999"},
	{"Variable":"Make","Value":"CHEVROLET"},
	{"Variable":"Model","Value":"Corvette"},
	{"Variable":"Trim","Value":""}
]}`

func TestVPICClient_Decode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, vpicBody)
	}))
	defer srv.Close()

	c := NewVPICClient(srv.URL, time.Second)
	decoded, err := c.Decode(context.Background(), "1G1YY32G5X5114539")
	require.NoError(t, err)
	require.Equal(t, 1999, decoded.Year)
	require.Equal(t, "CHEVROLET", decoded.Make)
	require.Equal(t, "Corvette", decoded.Model)
}

func TestVPICClient_DecodeCachesByVIN(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, vpicBody)
	}))
	defer srv.Close()

	c := NewVPICClient(srv.URL, time.Second)
	for i := 0; i < 3; i++ {
		_, err := c.Decode(context.Background(), "1G1YY32G5X5114539")
		require.NoError(t, err)
	}

	require.Equal(t, int64(1), hits.Load(), "repeat decodes must hit the cache")
}

func TestVPICClient_DecodeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewVPICClient(srv.URL, time.Second)

	_, err := c.Decode(context.Background(), "1G1YY32G5X5114539")
	require.Error(t, err)

	_, err = c.Decode(context.Background(), "  ")
	require.Error(t, err)
}

func TestVPICClient_DecodeEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Results":[{"Variable":"Model Year","Value":""}]}`)
	}))
	defer srv.Close()

	c := NewVPICClient(srv.URL, time.Second)
	_, err := c.Decode(context.Background(), "CSX2196")
	require.Error(t, err, "a decode with no year and no make is an error, not an empty result")
}
