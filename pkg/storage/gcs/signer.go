package gcs

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const storageHost = "https://storage.googleapis.com"

// SignedURL produces a V2-signed PUT URL for direct client uploads.
func (c *Client) SignedURL(bucket, object, contentType string, expires time.Duration) (string, error) {
	if c == nil || c.serviceAccount == nil {
		return "", errors.New("gcs signer requires service account credentials")
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	if bucket == "" {
		return "", errors.New("gcs bucket is required")
	}
	if object == "" {
		return "", errors.New("gcs object is required")
	}
	if contentType == "" {
		return "", errors.New("content type is required")
	}
	if expires <= 0 {
		return "", errors.New("expiry must be positive")
	}

	expiration := time.Now().Add(expires).Unix()
	stringToSign := "PUT\n\n" + contentType + "\n" + strconv.FormatInt(expiration, 10) + "\n/" + bucket + "/" + object
	signature, err := c.signV2(stringToSign)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	query.Set("GoogleAccessId", url.QueryEscape(c.serviceAccount.clientEmail))
	query.Set("Expires", strconv.FormatInt(expiration, 10))
	query.Set("Signature", url.QueryEscape(signature))

	return fmt.Sprintf("%s/%s/%s?%s", storageHost, bucket, object, query.Encode()), nil
}

// SignedReadURL produces a V2-signed GET URL for time-limited downloads.
func (c *Client) SignedReadURL(bucket, object string, expires time.Duration) (string, error) {
	if c == nil || c.serviceAccount == nil {
		return "", errors.New("gcs signer requires service account credentials")
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	if bucket == "" {
		return "", errors.New("gcs bucket is required")
	}
	if object == "" {
		return "", errors.New("gcs object is required")
	}
	if expires <= 0 {
		return "", errors.New("expiry must be positive")
	}

	expiration := time.Now().Add(expires).Unix()
	stringToSign := "GET\n\n\n" + strconv.FormatInt(expiration, 10) + "\n/" + bucket + "/" + object
	signature, err := c.signV2(stringToSign)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"%s/%s/%s?GoogleAccessId=%s&Expires=%d&Signature=%s",
		storageHost, bucket, object, c.serviceAccount.clientEmail, expiration, signature,
	), nil
}

// DeleteObject removes an object through the JSON API. Missing objects are not errors.
func (c *Client) DeleteObject(ctx context.Context, bucket, object string) error {
	if c == nil || c.tokenSource == nil {
		return errors.New("gcs client not initialized")
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	if bucket == "" {
		return errors.New("gcs bucket is required")
	}
	if object == "" {
		return errors.New("gcs object is required")
	}

	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return err
	}

	u := fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s",
		storageHost, url.PathEscape(bucket), url.PathEscape(object),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if len(b) > 0 {
			return fmt.Errorf("gcs delete failed: %s: %s", resp.Status, strings.TrimSpace(string(b)))
		}
		return fmt.Errorf("gcs delete failed: %s", resp.Status)
	}
}

func (c *Client) signV2(stringToSign string) (string, error) {
	hash := sha256.Sum256([]byte(stringToSign))
	signature, err := rsa.SignPKCS1v15(rand.Reader, c.serviceAccount.privateKey, crypto.SHA256, hash[:])
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(signature), nil
}
