package generator

import (
	"crypto"
	"strconv"
)

// Fixed VERS V2 XML written around the template content. Line endings are CRLF.

const veoPreamble = "<?xml version=\"1.0\" encoding=\"UTF-8\" standalone=\"no\" ?>\r\n" +
	"<!DOCTYPE vers:VERSEncapsulatedObject SYSTEM \"vers.dtd\">\r\n" +
	"<vers:VERSEncapsulatedObject\r\n" +
	"  xmlns:vers=\"http://www.prov.vic.gov.au/gservice/standard/pros99007.htm\" \r\n" +
	"  xmlns:naa=\"http://www.naa.gov.au/recordkeeping/control/rkms/contents.html\">\r\n" +
	" <vers:VEOFormatDescription>\r\n" +
	"  <vers:Text>\r\n" +
	"This record conforms to the structure defined in \"Management of\r\n" +
	"Electronic Records, PROS 99/007 (Version 2.0), Public Record Office\r\n" +
	"Victoria, 2003. The structure of this record is represented using\r\n" +
	"Extensible Markup Lanugage (XML) 1.0, W3C, 1998\r\n" +
	"  </vers:Text>\r\n" +
	" </vers:VEOFormatDescription>\r\n" +
	" <vers:Version>2.0</vers:Version>\r\n"

const veoEpilogue = "</vers:VERSEncapsulatedObject>\r\n"

func signatureBlockStart(revision, id int) string {
	return " <vers:SignatureBlock vers:id=\"Revision-" + strconv.Itoa(revision) +
		"-Signature-" + strconv.Itoa(id) + "\">\r\n"
}

const signatureBlockEnd = " </vers:SignatureBlock>\r\n"

func lockSignatureBlockStart(revision, target int) string {
	return " <vers:LockSignatureBlock vers:signsSignatureBlock=\"Revision-" + strconv.Itoa(revision) +
		"-Signature-" + strconv.Itoa(target) + "\">\r\n"
}

const lockSignatureBlockEnd = " </vers:LockSignatureBlock>\r\n"

var hashDescriptions = map[crypto.Hash]string{
	crypto.SHA1: "SHA-1 is defined in Secure Hash Standard,\r\n" +
		"FIPS PUB 180-1, National Institute of Standards and Technology, US\r\n" +
		"Department of Commerce, 17 April 1995,\r\n" +
		"(http://csrc.nist.gov/publications/fips/fips180-1/fip180-1.pdf).\r\n",
	crypto.SHA256: secureHashStandard4("SHA-256"),
	crypto.SHA384: secureHashStandard4("SHA-384"),
	crypto.SHA512: secureHashStandard4("SHA-512"),
}

func secureHashStandard4(name string) string {
	return name + " is defined in Secure Hash Standard (SHS),\r\n" +
		"FIPS PUB 180-4, National Institute of Standards and Technology, US\r\n" +
		"Department of Commerce, August 2015,\r\n" +
		"(https://doi.org/10.6028/NIST.FIPS.180-4).\r\n"
}

var keyDescriptions = map[string]string{
	KeyAlgorithmRSA: "The RSA algorithm (RSASSA-PKCS-v1_5) is defined in PKCS #1 v2.1: RSA\r\n" +
		"Cryptography Standard, RSA Laboratories, 14 June 2002,\r\n" +
		"(ftp://ftp.rsasecurity.com/pub/pkcs/pkcs-1/pkcs-1v2-1.pdf).\r\n",
	KeyAlgorithmEd25519: "The Ed25519ph algorithm is defined in Edwards-Curve Digital Signature\r\n" +
		"Algorithm (EdDSA), IETF RFC 8032, S. Josefsson &amp; I. Liusvaara,\r\n" +
		"January 2017, (https://www.rfc-editor.org/rfc/rfc8032).\r\n",
}

// formatDescription opens vers:SignatureFormatDescription and names the algorithms used.
func formatDescription(alg Algorithm) string {
	return "  <vers:SignatureFormatDescription>\r\n" +
		"The contents of this VEO is signed using " + HashName(alg.Hash) + " hash algorithm and " + alg.KeyAlgorithm + "\r\n" +
		"digital signature algorithm. " + hashDescriptions[alg.Hash] + keyDescriptions[alg.KeyAlgorithm]
}

const certificateDescription = "Details of the public keys are encoded as X.509 certificates in the\r\n" +
	"vers:CertificateBlock elements. X.509 certificates are define in\r\n" +
	"\"Information technology - Open Systems Interconnection - The Directory:\r\n" +
	"Public-key and attribute certificate frameworks\", ITU-T Recommendation\r\n" +
	"X.509 (2000). The signature and certificates are encoded using Base64.\r\n" +
	"Base64 is defined in Multipurpose Internet Mail Extensions (MIME) Part\r\n" +
	"One: Format of Internet Message Bodies, Section 6.8, Base64\r\n" +
	"Content-Transfer- Encoding, IETF RFC 2045, N. Freed &amp;\r\n" +
	"N. Borenstein, November 1996,\r\n" +
	"(http://www.ietf.org/rfc/rfc2045.txt?number=2045)\r\n"

const signedObjectCoverage = "The signature covers the contents of the vers:SignedObject element\r\n" +
	"starting with the 'less than' symbol of the vers:SignedObject start tag\r\n" +
	"up to and including the 'greater than' symbol of the vers:SignedObject\r\n" +
	"end tag. Before verifying the signature all whitespace (Unicode\r\n" +
	"characters U+0009, U+000A, U+000D, and U+0020) must be removed from the\r\n" +
	"text.\r\n"

const lockCoverage = "The signature covers the contents of the vers:SignedObject element\r\n" +
	"starting with the first base64 encoded character and ending with the\r\n" +
	"last character.\r\n"

const algorithmStart = "  </vers:SignatureFormatDescription>\r\n" +
	"  <vers:SignatureAlgorithm>\r\n" +
	"   <vers:SignatureAlgorithmIdentifier>\r\n"

const algorithmEnd = "\r\n" +
	"   </vers:SignatureAlgorithmIdentifier>\r\n" +
	"  </vers:SignatureAlgorithm>\r\n" +
	"  <vers:SignatureDate>\r\n"

const signatureDateEnd = "\r\n" +
	"</vers:SignatureDate>\r\n" +
	"  <vers:Signer>\r\n"

const signerEnd = "</vers:Signer>\r\n" +
	"  <vers:Signature>\r\n"

const unknownSigner = "Unknown"

// placeholderEnd follows the reserved signature region. The encoded signature has no
// CRLF after a partial last line, so the closing tag gets one here.
const placeholderEnd = "\r\n"

const signatureEnd = "  </vers:Signature>\r\n" +
	"  <vers:CertificateBlock>\r\n"

const certificateStart = "   <vers:Certificate>\r\n"

const certificateEnd = "\r\n" +
	"   </vers:Certificate>\r\n"

const certificateBlockEnd = "  </vers:CertificateBlock>\r\n"

const recordStart = " <vers:SignedObject vers:VEOVersion=\"2.0\">\r\n" +
	"  <vers:ObjectMetadata>\r\n" +
	"   <vers:ObjectType>Record</vers:ObjectType>\r\n" +
	"   <vers:ObjectTypeDescription>\r\n" +
	"This object contains a record; that is a collection of information\r\n" +
	"that must be preserved for a period of time.\r\n" +
	"   </vers:ObjectTypeDescription>\r\n" +
	"   <vers:ObjectCreationDate>"

const recordContentStart = "</vers:ObjectCreationDate>\r\n" +
	"  </vers:ObjectMetadata>\r\n" +
	"  <vers:ObjectContent>\r\n" +
	"   <vers:Record>\r\n"

const recordEnd = "   </vers:Record>\r\n" +
	"  </vers:ObjectContent>\r\n" +
	" </vers:SignedObject>\r\n"

func documentStart(revision, document int) string {
	return "    <vers:Document vers:id=\"Revision-" + strconv.Itoa(revision) +
		"-Document-" + strconv.Itoa(document) + "\">\r\n" +
		"     <vers:DocumentMetadata>\r\n"
}

const documentMetadataEnd = "     </vers:DocumentMetadata>\r\n"

const documentEnd = "    </vers:Document>\r\n"

func encodingStart(revision, document, encoding int) string {
	return "     <vers:Encoding vers:id=\"Revision-" + strconv.Itoa(revision) +
		"-Document-" + strconv.Itoa(document) +
		"-Encoding-" + strconv.Itoa(encoding) + "\">\r\n"
}

const encodingEnd = "     </vers:Encoding>\r\n"

const fileStart = "  <vers:SignedObject vers:VEOVersion=\"2.0\">\r\n" +
	"  <vers:ObjectMetadata>\r\n" +
	"   <vers:ObjectType>File</vers:ObjectType>\r\n" +
	"   <vers:ObjectTypeDescription>\r\n" +
	"This object contains a file; that is a collection of related records.\r\n" +
	"   </vers:ObjectTypeDescription>\r\n" +
	"   <vers:ObjectCreationDate>\r\n"

const fileContentStart = "</vers:ObjectCreationDate>\r\n" +
	"  </vers:ObjectMetadata>\r\n" +
	"  <vers:ObjectContent>\r\n" +
	"   <vers:File>\r\n"

const fileEnd = "   </vers:File>\r\n" +
	"  </vers:ObjectContent>\r\n" +
	" </vers:SignedObject>\r\n"
