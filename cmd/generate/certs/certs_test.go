package certs

import (
	"crypto/tls"
	"crypto/x509"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateServerCert_VerifiesAgainstCA(t *testing.T) {
	caKey, caCert, err := GenerateCA(1)
	require.NoError(t, err)
	assert.True(t, caCert.IsCA)

	key, cert, err := GenerateServerCert(caKey, caCert, 1, []string{"update.local", "127.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"update.local"}, cert.DNSNames)
	require.Len(t, cert.IPAddresses, 1)
	assert.Equal(t, "127.0.0.1", cert.IPAddresses[0].String())

	pool := x509.NewCertPool()
	pool.AddCert(caCert)
	for _, name := range []string{"update.local", "127.0.0.1"} {
		_, err = cert.Verify(x509.VerifyOptions{DNSName: name, Roots: pool})
		assert.NoError(t, err, name)
	}
	_, err = cert.Verify(x509.VerifyOptions{DNSName: "other.local", Roots: pool})
	assert.Error(t, err)

	// PEM output loads back as a key pair
	keyPEM, err := EncodePrivateKey(key)
	require.NoError(t, err)
	_, err = tls.X509KeyPair(EncodeCertificate(cert), keyPEM)
	assert.NoError(t, err)
}

func TestGenerateServerCert_RequiresHost(t *testing.T) {
	caKey, caCert, err := GenerateCA(1)
	require.NoError(t, err)

	_, _, err = GenerateServerCert(caKey, caCert, 1, nil)
	assert.Error(t, err)
}
