package apiclient

import (
	"bufio"
	"bytes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/pbkdf2"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"

	apitypes "github.com/padrelay/padrelay/apitypes"
)

// Handshake constants of the VIIPER v1 password scheme.
const (
	HandshakeMagic   = "eVI1\x00"
	NonceSize        = 32
	PBKDF2Iterations = 100000
	PBKDF2Salt       = "VIIPER-Key-v1"

	authContext    = "VIIPER-Auth-v1"
	sessionContext = "VIIPER-Session-v1"
	maxPacketSize  = 2 * 1024 * 1024
)

// DeriveKey stretches a password into the 32-byte pre-shared key.
func DeriveKey(password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("password cannot be empty")
	}
	return pbkdf2.Key(sha256.New, password, []byte(PBKDF2Salt), PBKDF2Iterations, 32)
}

// DeriveSessionKey mixes the pre-shared key with both nonces.
func DeriveSessionKey(key, serverNonce, clientNonce []byte) []byte {
	h := sha256.New()
	h.Write(key)
	h.Write(serverNonce)
	h.Write(clientNonce)
	h.Write([]byte(sessionContext))
	return h.Sum(nil)
}

// ClientAuth computes the HMAC a client sends to prove it knows key.
func ClientAuth(key, clientNonce []byte) []byte {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(authContext))
	_, _ = mac.Write(clientNonce)
	return mac.Sum(nil)
}

// authenticate runs the client half of the handshake on conn and returns the
// encrypted connection.
func authenticate(conn net.Conn, password string) (net.Conn, error) {
	key, err := DeriveKey(password)
	if err != nil {
		return nil, err
	}

	clientNonce := make([]byte, NonceSize)
	if _, err := rand.Read(clientNonce); err != nil {
		return nil, fmt.Errorf("generate client nonce: %w", err)
	}
	msg := append([]byte(HandshakeMagic), clientNonce...)
	msg = append(msg, ClientAuth(key, clientNonce)...)
	if _, err := conn.Write(msg); err != nil {
		return nil, fmt.Errorf("write handshake: %w", err)
	}

	r := bufio.NewReader(conn)
	prefix := make([]byte, 3)
	if _, err := io.ReadFull(r, prefix); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apitypes.ApiError{Status: 401, Title: "Unauthorized", Detail: "invalid password"}
		}
		return nil, fmt.Errorf("read handshake response: %w", err)
	}
	if string(prefix) != "OK\x00" {
		rest, _ := io.ReadAll(r)
		line := strings.TrimSuffix(string(append(prefix, rest...)), "\n")
		var apiErr apitypes.ApiError
		if err := json.Unmarshal([]byte(line), &apiErr); err == nil && (apiErr.Status != 0 || apiErr.Title != "") {
			return nil, apiErr
		}
		return nil, fmt.Errorf("invalid handshake response from server: %q", line)
	}

	serverNonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(r, serverNonce); err != nil {
		return nil, fmt.Errorf("read server nonce: %w", err)
	}
	return WrapConn(conn, DeriveSessionKey(key, serverNonce, clientNonce))
}

// SecureConn frames every write as [len u32 BE][nonce 12][ciphertext] sealed with
// ChaCha20-Poly1305.
type SecureConn struct {
	net.Conn
	aead    cipher.AEAD
	sendCtr uint64
	recvBuf bytes.Buffer
	mu      sync.Mutex
}

// WrapConn encrypts conn with sessionKey.
func WrapConn(conn net.Conn, sessionKey []byte) (net.Conn, error) {
	aead, err := chacha20poly1305.New(sessionKey)
	if err != nil {
		return nil, err
	}
	return &SecureConn{Conn: conn, aead: aead}, nil
}

func (s *SecureConn) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonce := make([]byte, chacha20poly1305.NonceSize)
	binary.BigEndian.PutUint64(nonce[4:], s.sendCtr)
	s.sendCtr++

	sealed := s.aead.Seal(nil, nonce, p, nil)
	pkt := make([]byte, 4, 4+len(nonce)+len(sealed))
	binary.BigEndian.PutUint32(pkt, uint32(len(nonce)+len(sealed)))
	pkt = append(pkt, nonce...)
	pkt = append(pkt, sealed...)
	if _, err := s.Conn.Write(pkt); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *SecureConn) Read(p []byte) (int, error) {
	if s.recvBuf.Len() == 0 {
		var hdr [4]byte
		if _, err := io.ReadFull(s.Conn, hdr[:]); err != nil {
			return 0, err
		}
		n := binary.BigEndian.Uint32(hdr[:])
		if n > maxPacketSize || n < chacha20poly1305.NonceSize {
			return 0, io.ErrUnexpectedEOF
		}
		pkt := make([]byte, n)
		if _, err := io.ReadFull(s.Conn, pkt); err != nil {
			return 0, err
		}
		plain, err := s.aead.Open(nil, pkt[:chacha20poly1305.NonceSize], pkt[chacha20poly1305.NonceSize:], nil)
		if err != nil {
			return 0, err
		}
		s.recvBuf.Write(plain)
	}
	return s.recvBuf.Read(p)
}
