package crypto

import (
	"net"
	"os"
	"time"

	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"

	"github.com/pkg/errors"
)

// Functions

// certTemplate returns a certificate template that has
// all default values for our certificates already set.
func certTemplate(notBefore time.Time, notAfter time.Time) (*x509.Certificate, error) {

	// For serial number generation we need a biggest
	// number to mark the range of the serial number.
	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)

	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return nil, errors.Wrap(err, "could not generate random serial number")
	}

	return &x509.Certificate{
		SerialNumber:          serialNumber,
		Subject:               pkix.Name{Organization: []string{"pluto imapd"}},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		BasicConstraintsValid: true,
	}, nil
}

// GenerateSelfSigned writes a self-signed certificate and
// its key in PEM format to certPath and keyPath. hosts may
// contain IP addresses and DNS names.
func GenerateSelfSigned(certPath string, keyPath string, hosts []string, validFor time.Duration) error {

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return errors.Wrap(err, "failed to generate key")
	}

	notBefore := time.Now().Add(-time.Minute)

	template, err := certTemplate(notBefore, notBefore.Add(validFor))
	if err != nil {
		return err
	}

	// The certificate signs itself, so it is its own CA.
	template.IsCA = true
	template.KeyUsage = x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign
	template.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}

	for _, host := range hosts {

		if ip := net.ParseIP(host); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, host)
		}
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return errors.Wrap(err, "failed to create DER byte representation of certificate")
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return errors.Wrap(err, "failed to marshal key")
	}

	if err := writePEM(certPath, "CERTIFICATE", certDER, 0644); err != nil {
		return err
	}

	return writePEM(keyPath, "EC PRIVATE KEY", keyDER, 0600)
}

func writePEM(path string, blockType string, der []byte, perm os.FileMode) error {

	f, err := os.OpenFile(path, (os.O_WRONLY | os.O_CREATE | os.O_TRUNC), perm)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		return errors.Wrapf(err, "failed to write %s in PEM format", path)
	}

	return f.Sync()
}
